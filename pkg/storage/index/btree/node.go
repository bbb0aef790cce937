package btree

import (
	"storekit/pkg/storage/index"
	"storekit/pkg/types"
)

// Node is a B+Tree node. A leaf holds entries sorted by key; an inner node
// holds children and, for each child, the largest key in that child's
// subtree (its separator). Separators are only ever written by recompute.
type Node struct {
	leaf   bool
	degree int

	entries []index.IndexEntry // leaf only

	children   []*Node       // inner only
	separators []types.Field // inner only, separators[i] = children[i].SeparatorKey()
}

func newLeaf(degree int) *Node {
	return &Node{leaf: true, degree: degree}
}

func newInner(degree int, children ...*Node) *Node {
	n := &Node{degree: degree, children: children}
	n.recompute()
	return n
}

func (n *Node) IsLeaf() bool { return n.leaf }

func (n *Node) Degree() int { return n.degree }

// Size is the number of entries of a leaf or children of an inner node.
func (n *Node) Size() int {
	if n.leaf {
		return len(n.entries)
	}
	return len(n.children)
}

// maxSize is degree entries for a leaf and degree+1 children for an inner node.
func (n *Node) maxSize() int {
	if n.leaf {
		return n.degree
	}
	return n.degree + 1
}

// minSize is the lower bound for non-root nodes.
func (n *Node) minSize() int {
	return (n.degree + 1) / 2
}

// AtCapacity reports whether the node is at its minimum size, so it cannot
// lend an entry or child without underflowing.
func (n *Node) AtCapacity() bool { return n.Size() == n.minSize() }

func (n *Node) OverCapacity() bool { return n.Size() > n.maxSize() }

func (n *Node) UnderCapacity() bool { return n.Size() < n.minSize() }

// SeparatorKey returns the largest key in the subtree rooted at n, or nil
// for an empty leaf.
func (n *Node) SeparatorKey() types.Field {
	if n.leaf {
		if len(n.entries) == 0 {
			return nil
		}
		return n.entries[len(n.entries)-1].Key
	}
	if len(n.separators) == 0 {
		return nil
	}
	return n.separators[len(n.separators)-1]
}

// Entries returns a copy of a leaf's entries.
func (n *Node) Entries() []index.IndexEntry {
	return append([]index.IndexEntry(nil), n.entries...)
}

// Children returns a copy of an inner node's children.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Separators returns a copy of an inner node's separator keys.
func (n *Node) Separators() []types.Field {
	return append([]types.Field(nil), n.separators...)
}

// recompute rebuilds the separator of every child of an inner node.
func (n *Node) recompute() {
	if n.leaf {
		return
	}
	n.separators = n.separators[:0]
	for _, child := range n.children {
		n.separators = append(n.separators, child.SeparatorKey())
	}
}

// route returns the index of the first child whose separator is >= key,
// or the last child when key is larger than every separator.
func (n *Node) route(key types.Field) int {
	for i, sep := range n.separators {
		if compare(sep, key) >= 0 {
			return i
		}
	}
	return len(n.children) - 1
}

// find returns the position of key in a leaf and whether it is present.
func (n *Node) find(key types.Field) (int, bool) {
	lo, hi := 0, len(n.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if compare(n.entries[mid].Key, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(n.entries) && compare(n.entries[lo].Key, key) == 0
}

// split moves the upper half of an overfull node into a new right sibling.
// The original keeps (size+1)/2 entries or children.
func (n *Node) split() *Node {
	mid := (n.Size() + 1) / 2
	if n.leaf {
		sibling := newLeaf(n.degree)
		sibling.entries = append(sibling.entries, n.entries[mid:]...)
		n.entries = n.entries[:mid:mid]
		return sibling
	}

	sibling := newInner(n.degree, append([]*Node(nil), n.children[mid:]...)...)
	n.children = n.children[:mid:mid]
	n.recompute()
	return sibling
}

func (n *Node) insertEntry(pos int, e index.IndexEntry) {
	n.entries = append(n.entries, index.IndexEntry{})
	copy(n.entries[pos+1:], n.entries[pos:])
	n.entries[pos] = e
}

func (n *Node) removeEntry(pos int) index.IndexEntry {
	e := n.entries[pos]
	n.entries = append(n.entries[:pos], n.entries[pos+1:]...)
	return e
}

func (n *Node) insertChild(pos int, child *Node) {
	n.children = append(n.children, nil)
	copy(n.children[pos+1:], n.children[pos:])
	n.children[pos] = child
}

func (n *Node) removeChild(pos int) *Node {
	child := n.children[pos]
	n.children = append(n.children[:pos], n.children[pos+1:]...)
	return child
}

// compare orders two keys of the same type. Key types are checked on the
// way into the tree, so a mismatch here cannot happen.
func compare(a, b types.Field) int {
	c, _ := types.Cmp(a, b)
	return c
}
