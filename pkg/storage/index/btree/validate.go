package btree

import "storekit/pkg/types"

// Validate checks the structural invariants of the tree: keys sorted
// within each leaf, every separator equal to the largest key of its
// child's subtree, every key inside the range its parent routes to it,
// size bounds on non-root nodes, all leaves at the same depth and the
// entry count matching Len. It returns ErrCorruptTree describing the
// first violation.
func (bt *BPlusTree) Validate() error {
	if !bt.root.leaf && len(bt.root.children) < 2 {
		return ErrCorruptTree.WithDetailf("inner root has %d children", len(bt.root.children))
	}

	v := validator{leafDepth: -1}
	if err := v.walk(bt.root, true, 0, nil, nil); err != nil {
		return err
	}
	if v.count != bt.size {
		return ErrCorruptTree.WithDetailf("counted %d entries, tree reports %d", v.count, bt.size)
	}
	return nil
}

type validator struct {
	leafDepth int
	count     int
}

// walk checks n, whose keys must be > low (when set) and <= high (when set).
func (v *validator) walk(n *Node, root bool, depth int, low, high types.Field) error {
	if n.Size() > n.maxSize() {
		return ErrCorruptTree.WithDetailf("node at depth %d has %d items, max %d", depth, n.Size(), n.maxSize())
	}
	if !root && n.UnderCapacity() {
		return ErrCorruptTree.WithDetailf("node at depth %d has %d items, min %d", depth, n.Size(), n.minSize())
	}

	if n.leaf {
		return v.checkLeaf(n, depth, low, high)
	}

	if len(n.separators) != len(n.children) {
		return ErrCorruptTree.WithDetailf("%d separators for %d children", len(n.separators), len(n.children))
	}
	prev := low
	for i, child := range n.children {
		sep := n.separators[i]
		if sep == nil || !sep.Equals(child.SeparatorKey()) {
			return ErrCorruptTree.WithDetailf("separator %v does not match child maximum %v", sep, child.SeparatorKey())
		}
		if prev != nil && compare(sep, prev) <= 0 {
			return ErrCorruptTree.WithDetailf("separators out of order at %v", sep)
		}
		if err := v.walk(child, false, depth+1, prev, sep); err != nil {
			return err
		}
		prev = sep
	}
	if high != nil && compare(prev, high) != 0 {
		return ErrCorruptTree.WithDetailf("subtree maximum %v differs from parent separator %v", prev, high)
	}
	return nil
}

func (v *validator) checkLeaf(n *Node, depth int, low, high types.Field) error {
	if v.leafDepth == -1 {
		v.leafDepth = depth
	} else if v.leafDepth != depth {
		return ErrCorruptTree.WithDetailf("leaves at depths %d and %d", v.leafDepth, depth)
	}

	for i, e := range n.entries {
		if i > 0 && compare(n.entries[i-1].Key, e.Key) >= 0 {
			return ErrCorruptTree.WithDetailf("leaf keys out of order at %v", e.Key)
		}
		if low != nil && compare(e.Key, low) <= 0 {
			return ErrCorruptTree.WithDetailf("key %v not above lower bound %v", e.Key, low)
		}
		if high != nil && compare(e.Key, high) > 0 {
			return ErrCorruptTree.WithDetailf("key %v above upper bound %v", e.Key, high)
		}
	}
	v.count += len(n.entries)
	return nil
}
