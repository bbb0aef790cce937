// Package btree implements an in-memory B+Tree index over Field keys.
//
// Leaves hold entries sorted by key. Inner nodes hold children and one
// separator key per child: the largest key in that child's subtree. A
// search descends into the first child whose separator is >= the key.
//
// With degree d, a leaf holds at most d entries and an inner node at most
// d+1 children. Every node except the root holds at least (d+1)/2. Inserts
// split overfull nodes at the midpoint; deletes merge an underfull node
// into an adjacent sibling at minimum size, or borrow one entry or child
// from it otherwise. The tree is not safe for concurrent use.
package btree

import (
	"storekit/pkg/dberror"
	"storekit/pkg/storage/index"
	"storekit/pkg/types"
)

// MinDegree is the smallest supported degree.
const MinDegree = 3

var (
	ErrInvalidDegree = dberror.New(dberror.CategoryCapacity, "INVALID_DEGREE", "B+Tree degree must be at least 3")
	ErrKeyNotFound   = dberror.New(dberror.CategoryLookup, "KEY_NOT_FOUND", "key is not in the index")
	ErrNilKey        = dberror.New(dberror.CategoryFormat, "NIL_KEY", "index key cannot be nil")
	ErrCorruptTree   = dberror.New(dberror.CategoryFormat, "CORRUPT_TREE", "B+Tree invariant violated")
)

// Entry is a key and the record id it points to.
type Entry = index.IndexEntry

var _ index.Index = (*BPlusTree)(nil)

// BPlusTree is an ordered index of unique keys.
type BPlusTree struct {
	root    *Node
	degree  int
	keyType types.Type
	typed   bool
	size    int
}

// NewBPlusTree creates an empty tree whose root is an empty leaf.
func NewBPlusTree(degree int) (*BPlusTree, error) {
	if degree < MinDegree {
		return nil, ErrInvalidDegree.WithDetailf("got %d", degree)
	}
	return &BPlusTree{root: newLeaf(degree), degree: degree}, nil
}

func (bt *BPlusTree) Degree() int { return bt.degree }

// Root returns the root node for inspection.
func (bt *BPlusTree) Root() *Node { return bt.root }

// Len returns the number of entries.
func (bt *BPlusTree) Len() int { return bt.size }

// Height returns the number of levels, 1 for a tree that is a single leaf.
func (bt *BPlusTree) Height() int {
	h := 1
	for n := bt.root; !n.leaf; n = n.children[0] {
		h++
	}
	return h
}

// checkKey rejects nil keys and keys whose type differs from the keys
// already indexed. The first key inserted fixes the tree's key type.
func (bt *BPlusTree) checkKey(key types.Field) error {
	if key == nil {
		return ErrNilKey
	}
	if bt.typed && key.Type() != bt.keyType {
		return types.ErrTypeMismatch.WithDetailf("index holds %s keys, got %s", bt.keyType, key.Type())
	}
	return nil
}

// Search returns the leaf holding key, or ErrKeyNotFound.
func (bt *BPlusTree) Search(key types.Field) (*Node, error) {
	if err := bt.checkKey(key); err != nil {
		return nil, err
	}

	leaf := bt.findLeaf(key, nil)
	if _, found := leaf.find(key); !found {
		return nil, ErrKeyNotFound.WithDetailf("%v", key)
	}
	return leaf, nil
}

// Get returns the entry stored under key.
func (bt *BPlusTree) Get(key types.Field) (Entry, error) {
	leaf, err := bt.Search(key)
	if err != nil {
		return Entry{}, err
	}
	pos, _ := leaf.find(key)
	return leaf.entries[pos], nil
}

// Ascend calls fn for every entry in key order until fn returns false.
func (bt *BPlusTree) Ascend(fn func(Entry) bool) {
	ascend(bt.root, fn)
}

func ascend(n *Node, fn func(Entry) bool) bool {
	if n.leaf {
		for _, e := range n.entries {
			if !fn(e) {
				return false
			}
		}
		return true
	}
	for _, child := range n.children {
		if !ascend(child, fn) {
			return false
		}
	}
	return true
}

// pathStep is one inner node on a root-to-leaf path and the index of the
// child the descent took.
type pathStep struct {
	node  *Node
	child int
}

// findLeaf descends to the leaf responsible for key. When path is non-nil
// each inner node visited is appended to it.
func (bt *BPlusTree) findLeaf(key types.Field, path *[]pathStep) *Node {
	n := bt.root
	for !n.leaf {
		i := n.route(key)
		if path != nil {
			*path = append(*path, pathStep{node: n, child: i})
		}
		n = n.children[i]
	}
	return n
}
