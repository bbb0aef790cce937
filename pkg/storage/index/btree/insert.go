package btree

// Insert adds entry to the tree. Inserting a key that is already present
// leaves the tree unchanged.
//
// Overfull nodes are split on the way back up; a split of the root grows
// the tree by one level.
func (bt *BPlusTree) Insert(entry Entry) error {
	if err := bt.checkKey(entry.Key); err != nil {
		return err
	}

	var path []pathStep
	leaf := bt.findLeaf(entry.Key, &path)

	pos, found := leaf.find(entry.Key)
	if found {
		return nil
	}
	leaf.insertEntry(pos, entry)
	bt.size++
	if !bt.typed {
		bt.keyType, bt.typed = entry.Key.Type(), true
	}

	child := leaf
	for i := len(path) - 1; i >= 0; i-- {
		parent := path[i].node
		if child.OverCapacity() {
			parent.insertChild(path[i].child+1, child.split())
		}
		parent.recompute()
		child = parent
	}

	if bt.root.OverCapacity() {
		sibling := bt.root.split()
		bt.root = newInner(bt.degree, bt.root, sibling)
	}
	return nil
}
