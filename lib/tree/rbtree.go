package tree

import (
	"github.com/benz9527/xrbtree/lib/infra"
)

var _ RBNode[int] = (*rbNodeHandle[int])(nil)

type rbNodeHandle[K any] struct {
	tree *rbTree[K]
	ref  nodeRef
	gen  uint32
}

func (h *rbNodeHandle[K]) IsValid() bool {
	return h != nil && h.tree != nil && h.tree.arena.isLive(h.ref, h.gen)
}

func (h *rbNodeHandle[K]) node() *rbNode[K] {
	if !h.IsValid() {
		panic( /* debug assertion */ "[rbtree] access an invalidated node handle")
	}
	return h.tree.node(h.ref)
}

func (h *rbNodeHandle[K]) Key() K {
	return h.node().key
}

func (h *rbNodeHandle[K]) Color() RBColor {
	return h.node().color
}

func (h *rbNodeHandle[K]) Left() RBNode[K] {
	return h.tree.handle(h.node().left)
}

func (h *rbNodeHandle[K]) Right() RBNode[K] {
	return h.tree.handle(h.node().right)
}

func (h *rbNodeHandle[K]) Parent() RBNode[K] {
	return h.tree.handle(h.node().parent)
}

var _ RBTree[int] = (*rbTree[int])(nil)

type rbTree[K any] struct {
	arena   *nodeArena[K]
	less    infra.LessFunc[K]
	root    nodeRef
	count   int64
	isDesc  bool
	isCheck bool
}

func (tree *rbTree[K]) node(ref nodeRef) *rbNode[K] {
	return tree.arena.get(ref)
}

// The nil leaf is never handed out, it is converted into a nil interface.
func (tree *rbTree[K]) handle(ref nodeRef) RBNode[K] {
	if ref == nilRef {
		return nil
	}
	return &rbNodeHandle[K]{
		tree: tree,
		ref:  ref,
		gen:  tree.node(ref).gen,
	}
}

func (tree *rbTree[K]) isRed(ref nodeRef) bool {
	return ref != nilRef && tree.node(ref).color == Red
}

func (tree *rbTree[K]) isBlack(ref nodeRef) bool {
	return !tree.isRed(ref)
}

func (tree *rbTree[K]) direction(ref nodeRef) RBDirection {
	if ref == nilRef {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}
	p := tree.node(ref).parent
	if p == nilRef {
		return Root
	}
	if tree.node(p).left == ref {
		return Left
	}
	return Right
}

func (tree *rbTree[K]) sibling(ref nodeRef) nodeRef {
	p := tree.node(ref).parent
	switch dir := tree.direction(ref); dir {
	case Left:
		return tree.node(p).right
	case Right:
		return tree.node(p).left
	default:
	}
	return nilRef
}

// nephews returns the sibling's child on the same side as x (sc)
// and the one on the opposite side (sd).
func (tree *rbTree[K]) nephews(sibling nodeRef, dir RBDirection) (sc, sd nodeRef) {
	s := tree.node(sibling)
	if dir == Left {
		return s.left, s.right
	}
	return s.right, s.left
}

func (tree *rbTree[K]) minimum(ref nodeRef) nodeRef {
	for ref != nilRef && tree.node(ref).left != nilRef {
		ref = tree.node(ref).left
	}
	return ref
}

func (tree *rbTree[K]) maximum(ref nodeRef) nodeRef {
	for ref != nilRef && tree.node(ref).right != nilRef {
		ref = tree.node(ref).right
	}
	return ref
}

// The succ node of the current node is its next node in sorted order.
func (tree *rbTree[K]) succ(x nodeRef) nodeRef {
	if x == nilRef {
		return nilRef
	}
	if r := tree.node(x).right; r != nilRef {
		return tree.minimum(r)
	}

	aux := tree.node(x).parent
	// Backtrack to the first father node that x is on its left part.
	for aux != nilRef && x == tree.node(aux).right {
		x = aux
		aux = tree.node(aux).parent
	}
	return aux
}

// The pred node of the current node is its previous node in sorted order.
func (tree *rbTree[K]) pred(x nodeRef) nodeRef {
	if x == nilRef {
		return nilRef
	}
	if l := tree.node(x).left; l != nilRef {
		return tree.maximum(l)
	}

	aux := tree.node(x).parent
	for aux != nilRef && x == tree.node(aux).left {
		x = aux
		aux = tree.node(aux).parent
	}
	return aux
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) Root() RBNode[K] {
	return tree.handle(tree.root)
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x nodeRef) {
	if x == nilRef || tree.node(x).right == nilRef {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	xn := tree.node(x)
	p, y := xn.parent, xn.right
	yn := tree.node(y)
	dir := tree.direction(x)

	xn.right = yn.left
	if yn.left != nilRef {
		tree.node(yn.left).parent = x
	}
	yn.left, xn.parent = x, y

	switch dir {
	case Root:
		tree.root = y
	case Left:
		tree.node(p).left = y
	case Right:
		tree.node(p).right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	yn.parent = p
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K]) rightRotate(x nodeRef) {
	if x == nilRef || tree.node(x).left == nilRef {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	xn := tree.node(x)
	p, y := xn.parent, xn.left
	yn := tree.node(y)
	dir := tree.direction(x)

	xn.left = yn.right
	if yn.right != nilRef {
		tree.node(yn.right).parent = x
	}
	yn.right, xn.parent = x, y

	switch dir {
	case Root:
		tree.root = y
	case Left:
		tree.node(p).left = y
	case Right:
		tree.node(p).right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	yn.parent = p
}

// rotate moves x down to the dir side.
func (tree *rbTree[K]) rotate(x nodeRef, dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] rotate to the root direction")
	}
}

func (tree *rbTree[K]) search(key K) nodeRef {
	for aux := tree.root; aux != nilRef; {
		n := tree.node(aux)
		if /* less */ tree.less(key, n.key) {
			aux = n.left
		} else /* greater */ if tree.less(n.key, key) {
			aux = n.right
		} else /* equal */ {
			return aux
		}
	}
	return nilRef
}

func (tree *rbTree[K]) Find(key K) RBNode[K] {
	return tree.handle(tree.search(key))
}

// i1: Empty rbtree, the new node becomes the root and is painted to black
// by the rebalance.
func (tree *rbTree[K]) Insert(key K) bool {
	var x, y nodeRef = tree.root, nilRef
	dir := Root
	for x != nilRef {
		y = x
		n := tree.node(x)
		if /* less */ tree.less(key, n.key) {
			x, dir = n.left, Left
		} else /* greater */ if tree.less(n.key, key) {
			x, dir = n.right, Right
		} else /* equal */ {
			return false
		}
	}

	// The allocation may move the slots, no node pointer is held across it.
	z := tree.arena.allocate(key)
	tree.node(z).parent = y
	switch dir {
	case Root:
		tree.root = z
	case Left:
		tree.node(y).left = z
	case Right:
		tree.node(y).right = z
	default:
	}

	tree.count++
	tree.insertRebalance(z)
	tree.debugCheck()
	return true
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X is the root, repaint it into black.

im2: Current node X or its parent P is black, hold p3 and p4.

im3: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Continue to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to opposite direction.
After rotation it is still red-violation. The next loop enters im5.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: Handle im4 scenario, current node is the same direction as parent.
Rotate G and swap the colors of G and P. The next loop stops at im2.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K]) insertRebalance(x nodeRef) {
	for {
		xn := tree.node(x)
		if /* im1 */ xn.parent == nilRef {
			xn.color = Black
			return
		}

		p := xn.parent
		pn := tree.node(p)
		if /* im2 */ xn.color == Black || pn.color == Black {
			return
		}

		// A red parent is never the root, so the grandpa exists.
		g := pn.parent
		if g == nilRef {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] red parent without grandpa")
		}
		gn := tree.node(g)
		pDir := tree.direction(p)
		u := tree.sibling(p)

		if /* im3 */ tree.isRed(u) {
			pn.color = Black
			tree.node(u).color = Black
			gn.color = Red
			x = g
			continue
		}

		if /* im5 */ tree.direction(x) == pDir {
			tree.rotate(g, -pDir)
			gn.color, pn.color = pn.color, gn.color
			x = g
		} else /* im4 */ {
			tree.rotate(p, pDir)
			x = p
		}
	}
}

func (tree *rbTree[K]) Remove(key K) bool {
	z := tree.search(key)
	if z == nilRef {
		return false
	}
	tree.erase(z)
	tree.debugCheck()
	return true
}

func (tree *rbTree[K]) Erase(node RBNode[K]) {
	h, ok := node.(*rbNodeHandle[K])
	if !ok || h == nil || h.tree != tree || !h.IsValid() {
		panic( /* debug assertion */ "[rbtree] erase an invalid node handle")
	}
	tree.erase(h.ref)
	tree.debugCheck()
}

// transplant replaces the subtree rooted at u with the one rooted at v.
// v must not be the nil leaf.
func (tree *rbTree[K]) transplant(u, v nodeRef) {
	p := tree.node(u).parent
	switch dir := tree.direction(u); dir {
	case Root:
		tree.root = v
	case Left:
		tree.node(p).left = v
	case Right:
		tree.node(p).right = v
	default:
	}
	tree.node(v).parent = p
}

/*
r1: Current node X is the root without children, remove directly.

r2: Current node X has left and right node.
Find node X's succ to replace it to be removed.
Copy the key only, the succ has at most one (right) child.

	  |                    |
	  X                    S
	 / \                  / \
	L  ..   copy(S, X)   L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                S  ..

r3: (1) Current node X is a red leaf node, unlink directly.

r3: (2) Current node X is a black leaf node, it stands in as the
deficient position to rebalance before it is unlinked. (black-violation)

r4: Current node X contains one not nil child node. The child replaces X.
If X is black, the child must be red (see conclusion), the rebalance
repaints it into black.
*/
func (tree *rbTree[K]) erase(z nodeRef) {
	if /* r2 */ zn := tree.node(z); zn.left != nilRef && zn.right != nilRef {
		y := tree.succ(z)
		zn.key = tree.node(y).key
		zn.gen++ // the handles to z must not observe the succ key
		z = y
	}

	zn := tree.node(z)
	replace := zn.left
	if replace == nilRef {
		replace = zn.right
	}

	if /* r4 */ replace != nilRef {
		tree.transplant(z, replace)
		if zn.color == Black {
			tree.removeRebalance(replace)
		}
	} else if /* r1 */ zn.parent == nilRef {
		tree.root = nilRef
	} else /* r3 */ {
		if /* r3 (2) */ zn.color == Black {
			tree.removeRebalance(z)
		}
		// Rotations may have moved z under a new parent.
		switch dir := tree.direction(z); dir {
		case Left:
			tree.node(zn.parent).left = nilRef
		case Right:
			tree.node(zn.parent).right = nilRef
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] unlink a leaf node without parent, violate (r3)")
		}
	}

	tree.count--
	tree.arena.recycle(z)
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it X's sibling's child node.
Sd is the opposite direction to X and it X's sibling's child node.

rm1: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
Repaint S into black, P into red, rotate P to X's direction.
Then X has a black sibling, enter rm2-rm4 in the same loop.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [D]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: Current node X's sibling S, nephew node Sc and Sd are black.
Paint S into red to satisfy p4 locally. Then continue to handle P.
If P is red, the loop ends and P is repainted into black.

	  {P}             {P}
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Ignore X's parent P's color (red or black is okay)
Rotate S to the opposite direction of X, repaint S into red, Sc into black.
Enter into rm4 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm4: Current node X's sibling S is black and nephew node Sd is red.
Ignore X's parent P's color (red or black is okay)
(1) S takes P's color, P and Sd are repainted into black.
(2) Rotate P to X's direction.
The deficiency is resolved, the loop ends at the root.

	  {P}                   {S}                {S}
	  / \    repaint        / \   l-rotate(P)  / \
	[X] [S]  ==========>  [P] [S]  ======>   [P] [Sd]
	    / \                   / \            / \
	 [Sc] <Sd>             [Sc] [Sd]       [X] [Sc]
*/
func (tree *rbTree[K]) removeRebalance(x nodeRef) {
	for x != tree.root && tree.isBlack(x) {
		p := tree.node(x).parent
		dir := tree.direction(x)
		sibling := tree.sibling(x)
		if sibling == nilRef {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] black node without sibling, violate (p4)")
		}

		if /* rm1 */ tree.isRed(sibling) {
			tree.node(sibling).color = Black
			tree.node(p).color = Red
			tree.rotate(p, dir)
			sibling = tree.sibling(x)
		}

		sc, sd := tree.nephews(sibling, dir)
		if /* rm2 */ tree.isBlack(sc) && tree.isBlack(sd) {
			tree.node(sibling).color = Red
			x = p
			continue
		}

		if /* rm3 */ tree.isBlack(sd) {
			tree.node(sc).color = Black
			tree.node(sibling).color = Red
			tree.rotate(sibling, -dir)
			sibling = tree.sibling(x)
			_, sd = tree.nephews(sibling, dir)
		}

		/* rm4 */
		tree.node(sibling).color = tree.node(p).color
		tree.node(p).color = Black
		tree.node(sd).color = Black
		tree.rotate(p, dir)
		x = tree.root
	}
	tree.node(x).color = Black
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	aux := tree.root
	if aux == nilRef || action == nil {
		return
	}

	stack := make([]nodeRef, 0, 64)
	defer func() {
		clear(stack)
	}()

	for ; aux != nilRef; aux = tree.node(aux).left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		n := tree.node(aux)
		if !action(idx, n.color, n.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = n.right; aux != nilRef; aux = tree.node(aux).left {
			stack = append(stack, aux)
		}
	}
}

// Release tears down the tree in BFS order with an explicit queue.
// The tree is empty and reusable afterward, all handles are invalidated.
func (tree *rbTree[K]) Release() {
	aux := tree.root
	tree.root = nilRef
	if aux == nilRef {
		return
	}

	queue := make([]nodeRef, 0, tree.count)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for head := 0; head < len(queue); head++ {
		aux = queue[head]
		n := tree.node(aux)
		if n.left != nilRef {
			queue = append(queue, n.left)
		}
		if n.right != nilRef {
			queue = append(queue, n.right)
		}
		tree.arena.recycle(aux)
		tree.count--
	}
}

func (tree *rbTree[K]) debugCheck() {
	if !tree.isCheck {
		return
	}
	Check[K](tree)
}

type RBTreeOpt[K any] func(*rbTree[K])

// WithRBTreeDesc reverses the injected order.
func WithRBTreeDesc[K any]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isDesc = true
	}
}

// WithRBTreeArenaCap preallocates the node slots.
func WithRBTreeArenaCap[K any](capacity uint32) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.arena = newNodeArena[K](capacity)
	}
}

// WithRBTreeCheck validates all the rbtree properties after each
// structural mutation and panics on violation. Debug only, O(n) per
// mutation.
func WithRBTreeCheck[K any]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isCheck = true
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	return NewRBTreeWithLess[K](infra.OrderedLess[K], opts...)
}

func NewRBTreeWithLess[K any](less infra.LessFunc[K], opts ...RBTreeOpt[K]) RBTree[K] {
	if less == nil {
		panic("[rbtree] nil less func")
	}
	tree := &rbTree[K]{
		less:    less,
		isDesc:  false,
		isCheck: false,
	}

	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	if tree.arena == nil {
		tree.arena = newNodeArena[K](0)
	}
	if tree.isDesc {
		tree.less = tree.less.Reverse()
	}
	return tree
}
