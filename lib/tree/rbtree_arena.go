package tree

import "math"

// nodeRef addresses a slot of the node arena.
// Slot 0 is reserved as the nil leaf, it is never allocated
// and must never be written.
type nodeRef uint32

const nilRef nodeRef = 0

// Children refs are owning, the parent ref is a back-reference only.
type rbNode[K any] struct {
	key    K
	parent nodeRef
	left   nodeRef
	right  nodeRef
	gen    uint32 // bumped on recycle, invalidates the handles
	color  RBColor
	inUse  bool
}

// nodeArena stores all nodes of a tree in a growable slice.
// Released slots are kept in the recycled list and reused
// before the slice grows again.
type nodeArena[K any] struct {
	slots    []rbNode[K]
	recycled []nodeRef
}

func newNodeArena[K any](capacity uint32) *nodeArena[K] {
	slots := make([]rbNode[K], 1, int(capacity)+1)
	return &nodeArena[K]{
		slots:    slots,
		recycled: make([]nodeRef, 0, 16),
	}
}

// Pointers returned by get are valid until the next allocate.
func (arena *nodeArena[K]) get(ref nodeRef) *rbNode[K] {
	return &arena.slots[ref]
}

func (arena *nodeArena[K]) allocate(key K) nodeRef {
	var ref nodeRef
	if l := len(arena.recycled); l > 0 {
		ref = arena.recycled[l-1]
		arena.recycled = arena.recycled[:l-1]
	} else {
		if uint64(len(arena.slots)) > math.MaxUint32 {
			panic( /* debug assertion */ "[rbtree] node arena exhausted")
		}
		arena.slots = append(arena.slots, rbNode[K]{})
		ref = nodeRef(len(arena.slots) - 1)
	}
	node := &arena.slots[ref]
	node.key = key
	node.parent, node.left, node.right = nilRef, nilRef, nilRef
	node.color = Red
	node.inUse = true
	return ref
}

func (arena *nodeArena[K]) recycle(ref nodeRef) {
	if ref == nilRef {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] recycle the nil leaf")
	}
	node := &arena.slots[ref]
	if !node.inUse {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] recycle a free node twice")
	}
	*node = rbNode[K]{gen: node.gen + 1}
	arena.recycled = append(arena.recycled, ref)
}

func (arena *nodeArena[K]) isLive(ref nodeRef, gen uint32) bool {
	if ref == nilRef || int(ref) >= len(arena.slots) {
		return false
	}
	node := &arena.slots[ref]
	return node.inUse && node.gen == gen
}

// objLen is the number of allocated nodes.
func (arena *nodeArena[K]) objLen() int {
	return len(arena.slots) - 1 - len(arena.recycled)
}

func (arena *nodeArena[K]) recLen() int {
	return len(arena.recycled)
}

func (arena *nodeArena[K]) slotLen() int {
	return len(arena.slots)
}

// isNilLeafPristine reports whether slot 0 was left untouched.
func (arena *nodeArena[K]) isNilLeafPristine() bool {
	n := &arena.slots[nilRef]
	return n.parent == nilRef && n.left == nilRef && n.right == nilRef &&
		n.color == Black && !n.inUse && n.gen == 0
}
