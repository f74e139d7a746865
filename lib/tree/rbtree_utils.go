package tree

import (
	"fmt"

	"github.com/benz9527/xrbtree/lib/infra"
)

// rbtree rule validation utilities.
// All of them walk the tree with an explicit stack, so the call stack
// stays bounded whatever the tree depth is.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

func asRBTree[K any](tree RBTree[K]) (*rbTree[K], error) {
	if tree == nil {
		return nil, infra.NewErrorStack("[rbtree] nil tree to validate")
	}
	t, ok := tree.(*rbTree[K])
	if !ok || t == nil {
		return nil, infra.NewErrorStack(fmt.Sprintf("[rbtree] unsupported tree implementation %T", tree))
	}
	return t, nil
}

// postorder visits every node after both of its children.
func (tree *rbTree[K]) postorder(visit func(ref nodeRef) error) error {
	if tree.root == nilRef {
		return nil
	}
	type frame struct {
		ref      nodeRef
		expanded bool
	}
	stack := make([]frame, 0, 64)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, frame{ref: tree.root})

	for size := len(stack); size > 0; size = len(stack) {
		top := stack[size-1]
		if !top.expanded {
			stack[size-1].expanded = true
			n := tree.node(top.ref)
			if n.right != nilRef {
				stack = append(stack, frame{ref: n.right})
			}
			if n.left != nilRef {
				stack = append(stack, frame{ref: n.left})
			}
			continue
		}
		stack = stack[:size-1]
		if err := visit(top.ref); err != nil {
			return err
		}
	}
	return nil
}

func RootViolationValidate[K any](tree RBTree[K]) error {
	t, err := asRBTree[K](tree)
	if err != nil {
		return err
	}
	if t.root == nilRef {
		if t.count != 0 {
			return infra.NewErrorStack(fmt.Sprintf("rbtree root violation, empty tree with len %d", t.count))
		}
		return nil
	}
	if root := t.node(t.root); root.color != Black {
		return infra.NewErrorStack(fmt.Sprintf("rbtree root violation, red root %v", root.key))
	} else if root.parent != nilRef {
		return infra.NewErrorStack(fmt.Sprintf("rbtree root violation, root %v has parent", root.key))
	}
	return nil
}

// OrderViolationValidate checks that the inorder sequence is strictly
// increasing under the tree's less func, which is equivalent to the
// BST ordering of every node.
func OrderViolationValidate[K any](tree RBTree[K]) error {
	t, err := asRBTree[K](tree)
	if err != nil {
		return err
	}
	var (
		prev    K
		hasPrev bool
	)
	t.Foreach(func(idx int64, color RBColor, key K) bool {
		if hasPrev && !t.less(prev, key) {
			err = infra.NewErrorStack(fmt.Sprintf("rbtree order violation at %d, %v is not less than %v", idx, prev, key))
			return false
		}
		prev, hasPrev = key, true
		return true
	})
	return err
}

func RedViolationValidate[K any](tree RBTree[K]) error {
	t, err := asRBTree[K](tree)
	if err != nil {
		return err
	}
	return t.postorder(func(ref nodeRef) error {
		if n := t.node(ref); n.color == Red && (t.isRed(n.left) || t.isRed(n.right)) {
			return infra.NewErrorStack(fmt.Sprintf("rbtree red violation, red node %v has a red child", n.key))
		}
		return nil
	})
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
The black height of each node is computed after both of its children,
the nil leaf counts as one black node.
*/
func BlackViolationValidate[K any](tree RBTree[K]) error {
	t, err := asRBTree[K](tree)
	if err != nil {
		return err
	}
	heights := make([]int32, t.arena.slotLen())
	defer func() {
		clear(heights)
	}()
	heights[nilRef] = 1
	return t.postorder(func(ref nodeRef) error {
		n := t.node(ref)
		lh, rh := heights[n.left], heights[n.right]
		if lh != rh {
			return infra.NewErrorStack(fmt.Sprintf("rbtree black violation at %v, left black height %d, right black height %d", n.key, lh, rh))
		}
		if n.color == Black {
			lh++
		}
		heights[ref] = lh
		return nil
	})
}

// LinkViolationValidate checks the parent back-references, the node
// count and the arena bookkeeping.
func LinkViolationValidate[K any](tree RBTree[K]) error {
	t, err := asRBTree[K](tree)
	if err != nil {
		return err
	}
	if !t.arena.isNilLeafPristine() {
		return infra.NewErrorStack("rbtree link violation, the nil leaf has been written")
	}
	reachable := int64(0)
	err = t.postorder(func(ref nodeRef) error {
		n := t.node(ref)
		if !n.inUse {
			return infra.NewErrorStack(fmt.Sprintf("rbtree link violation, recycled node %d is reachable", ref))
		}
		if n.left != nilRef && t.node(n.left).parent != ref {
			return infra.NewErrorStack(fmt.Sprintf("rbtree link violation, left child of %v points to another parent", n.key))
		}
		if n.right != nilRef && t.node(n.right).parent != ref {
			return infra.NewErrorStack(fmt.Sprintf("rbtree link violation, right child of %v points to another parent", n.key))
		}
		reachable++
		return nil
	})
	if err != nil {
		return err
	}
	if reachable != t.count {
		return infra.NewErrorStack(fmt.Sprintf("rbtree link violation, %d reachable nodes but len %d", reachable, t.count))
	}
	if int64(t.arena.objLen()) != t.count {
		return infra.NewErrorStack(fmt.Sprintf("rbtree link violation, %d allocated nodes but len %d", t.arena.objLen(), t.count))
	}
	return nil
}

// Validate runs all the rbtree rule validations and combines the
// violations.
func Validate[K any](tree RBTree[K]) error {
	if _, err := asRBTree[K](tree); err != nil {
		return err
	}
	return infra.AppendErrorStack(nil,
		RootViolationValidate[K](tree),
		OrderViolationValidate[K](tree),
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		LinkViolationValidate[K](tree),
	)
}

// Check panics if any rbtree rule is violated. A violation is a defect of
// the balancing algorithm, not a recoverable condition.
func Check[K any](tree RBTree[K]) {
	if err := Validate[K](tree); err != nil {
		panic(infra.WrapErrorStackWithMessage(err, "[rbtree] debug assertion"))
	}
}
