package btree

// Delete removes the entry with entry's key, or returns ErrKeyNotFound.
//
// The root-to-leaf path is recorded on the way down. On the way back up an
// underfull node is merged into its left sibling (or right, when it is the
// first child) if that sibling is at minimum size, and otherwise borrows
// the sibling's nearest entry or child. A root left with a single child is
// replaced by that child.
func (bt *BPlusTree) Delete(entry Entry) error {
	if err := bt.checkKey(entry.Key); err != nil {
		return err
	}

	path := make([]pathStep, 0, bt.Height())
	leaf := bt.findLeaf(entry.Key, &path)

	pos, found := leaf.find(entry.Key)
	if !found {
		return ErrKeyNotFound.WithDetailf("%v", entry.Key)
	}
	leaf.removeEntry(pos)
	bt.size--

	bt.rebalance(path, leaf)

	for !bt.root.leaf && len(bt.root.children) == 1 {
		bt.root = bt.root.children[0]
	}
	return nil
}

// rebalance walks path bottom-up starting from the modified leaf, fixing
// underflow and recomputing separators.
func (bt *BPlusTree) rebalance(path []pathStep, modified *Node) {
	child := modified
	for i := len(path) - 1; i >= 0; i-- {
		parent, idx := path[i].node, path[i].child
		if child.UnderCapacity() {
			fixUnderflow(parent, idx)
		}
		parent.recompute()
		child = parent
	}
}

// fixUnderflow repairs parent.children[idx], which is below minimum size.
func fixUnderflow(parent *Node, idx int) {
	node := parent.children[idx]

	var sibling *Node
	left := idx > 0
	switch {
	case left:
		sibling = parent.children[idx-1]
	case idx+1 < len(parent.children):
		sibling = parent.children[idx+1]
	default:
		return
	}

	if sibling.Size() <= sibling.minSize() {
		merge(node, sibling, left)
		parent.removeChild(idx)
		return
	}

	borrow(node, sibling, left)
}

// merge moves every entry or child of node into sibling, keeping order.
func merge(node, sibling *Node, siblingIsLeft bool) {
	if node.leaf {
		if siblingIsLeft {
			sibling.entries = append(sibling.entries, node.entries...)
		} else {
			sibling.entries = append(append([]Entry(nil), node.entries...), sibling.entries...)
		}
		return
	}

	if siblingIsLeft {
		sibling.children = append(sibling.children, node.children...)
	} else {
		sibling.children = append(append([]*Node(nil), node.children...), sibling.children...)
	}
	sibling.recompute()
}

// borrow moves the sibling's entry or child nearest to node into node.
func borrow(node, sibling *Node, siblingIsLeft bool) {
	if node.leaf {
		if siblingIsLeft {
			node.insertEntry(0, sibling.removeEntry(len(sibling.entries)-1))
		} else {
			node.insertEntry(len(node.entries), sibling.removeEntry(0))
		}
		return
	}

	if siblingIsLeft {
		node.insertChild(0, sibling.removeChild(len(sibling.children)-1))
	} else {
		node.insertChild(len(node.children), sibling.removeChild(0))
	}
	node.recompute()
	sibling.recompute()
}
