package tree

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// RBNode is a handle of a node inside the tree.
// A handle is invalidated once its key has been removed or the
// tree has been released. Removing a key whose node has two
// children moves the successor key into that node, so the handles
// of the successor key are invalidated as well.
// Reading an invalidated handle panics.
type RBNode[K any] interface {
	Key() K
	Color() RBColor
	Left() RBNode[K]
	Right() RBNode[K]
	Parent() RBNode[K]
	IsValid() bool
}

// RBTree is an ordered container of unique keys.
// It is not safe for concurrent use.
type RBTree[K any] interface {
	Len() int64
	Root() RBNode[K]
	// Find returns nil if the key is absent.
	Find(key K) RBNode[K]
	// Insert returns false if an equal key is already present.
	// The stored key is not updated in that case.
	Insert(key K) bool
	// Remove returns false if the key is absent.
	Remove(key K) bool
	// Erase removes the node that a previous Find returned.
	Erase(node RBNode[K])
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Release()
}
