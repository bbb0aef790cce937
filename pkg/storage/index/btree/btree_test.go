package btree

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/primitives"
	"storekit/pkg/storage/index"
	"storekit/pkg/storage/page"
	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

func intEntry(k int32) Entry {
	rid := tuple.NewRecordID(page.NewPageDescriptor(1, primitives.PageNumber(k/10)), primitives.SlotID(k%10))
	return index.NewIndexEntry(types.NewIntField(k), rid)
}

func leafKeys(n *Node) []int32 {
	keys := make([]int32, 0, n.Size())
	for _, e := range n.Entries() {
		keys = append(keys, e.Key.(*types.IntField).Value)
	}
	return keys
}

func treeKeys(bt *BPlusTree) []int32 {
	var keys []int32
	bt.Ascend(func(e Entry) bool {
		keys = append(keys, e.Key.(*types.IntField).Value)
		return true
	})
	return keys
}

func newTree(t *testing.T, degree int, keys ...int32) *BPlusTree {
	t.Helper()
	bt, err := NewBPlusTree(degree)
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, bt.Insert(intEntry(k)))
		require.NoError(t, bt.Validate())
	}
	return bt
}

func TestNewBPlusTree_InvalidDegree(t *testing.T) {
	for _, d := range []int{-1, 0, 1, 2} {
		_, err := NewBPlusTree(d)
		assert.True(t, errors.Is(err, ErrInvalidDegree), "degree %d", d)
	}

	bt, err := NewBPlusTree(3)
	require.NoError(t, err)
	assert.True(t, bt.Root().IsLeaf())
	assert.Equal(t, 0, bt.Len())
	assert.Equal(t, 1, bt.Height())
}

func TestInsert_RootSplit(t *testing.T) {
	bt := newTree(t, 3, 1, 2, 3, 4)

	root := bt.Root()
	require.False(t, root.IsLeaf())
	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, []int32{1, 2}, leafKeys(children[0]))
	assert.Equal(t, []int32{3, 4}, leafKeys(children[1]))

	seps := root.Separators()
	assert.True(t, seps[0].Equals(types.NewIntField(2)))
	assert.True(t, seps[1].Equals(types.NewIntField(4)))

	leaf, err := bt.Search(types.NewIntField(3))
	require.NoError(t, err)
	assert.Same(t, children[1], leaf)
	assert.Equal(t, 2, bt.Height())
}

func TestInsert_DuplicateIsNoop(t *testing.T) {
	bt := newTree(t, 3, 5, 1, 9)
	require.NoError(t, bt.Insert(intEntry(5)))
	assert.Equal(t, 3, bt.Len())
	assert.Equal(t, []int32{1, 5, 9}, treeKeys(bt))
}

func TestInsert_TypeMismatch(t *testing.T) {
	bt := newTree(t, 3, 1)

	err := bt.Insert(index.NewIndexEntry(types.NewStringField("a"), nil))
	assert.True(t, errors.Is(err, types.ErrTypeMismatch))

	_, err = bt.Search(types.NewStringField("a"))
	assert.True(t, errors.Is(err, types.ErrTypeMismatch))

	err = bt.Insert(index.IndexEntry{})
	assert.True(t, errors.Is(err, ErrNilKey))
}

func TestSearchAndGet(t *testing.T) {
	bt := newTree(t, 4, 10, 20, 30, 40, 50, 60, 70)

	e, err := bt.Get(types.NewIntField(40))
	require.NoError(t, err)
	assert.True(t, e.Equals(intEntry(40)))

	_, err = bt.Search(types.NewIntField(45))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	_, err = bt.Get(types.NewIntField(100))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestAscend_OrderAndStop(t *testing.T) {
	bt := newTree(t, 3, 8, 3, 5, 1, 9, 2, 7, 4, 6)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9}, treeKeys(bt))

	var seen []int32
	bt.Ascend(func(e Entry) bool {
		seen = append(seen, e.Key.(*types.IntField).Value)
		return len(seen) < 4
	})
	assert.Equal(t, []int32{1, 2, 3, 4}, seen)
}

func TestDelete_MissingKey(t *testing.T) {
	bt := newTree(t, 3, 1, 2, 3)
	err := bt.Delete(intEntry(42))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	assert.Equal(t, 3, bt.Len())
}

func TestDelete_BorrowFromSibling(t *testing.T) {
	// leaves {1,2} {3,4,5}
	bt := newTree(t, 3, 1, 2, 3, 4, 5)
	require.Equal(t, 2, bt.Height())

	require.NoError(t, bt.Delete(intEntry(1)))
	require.NoError(t, bt.Validate())

	children := bt.Root().Children()
	require.Len(t, children, 2)
	assert.Equal(t, []int32{2, 3}, leafKeys(children[0]))
	assert.Equal(t, []int32{4, 5}, leafKeys(children[1]))
}

func TestDelete_MergeCollapsesRoot(t *testing.T) {
	bt := newTree(t, 3, 1, 2, 3, 4)

	require.NoError(t, bt.Delete(intEntry(4)))
	require.NoError(t, bt.Validate())

	root := bt.Root()
	assert.True(t, root.IsLeaf())
	assert.Equal(t, []int32{1, 2, 3}, leafKeys(root))
	assert.Equal(t, 1, bt.Height())
}

func TestDelete_All(t *testing.T) {
	keys := []int32{5, 3, 8, 1, 4, 7, 9, 2, 6, 10, 12, 11}
	bt := newTree(t, 3, keys...)

	for _, k := range keys {
		require.NoError(t, bt.Delete(intEntry(k)))
		require.NoError(t, bt.Validate())
	}
	assert.Equal(t, 0, bt.Len())
	assert.True(t, bt.Root().IsLeaf())
	assert.Empty(t, treeKeys(bt))
}

func TestRandomOperations(t *testing.T) {
	for _, degree := range []int{3, 4, 5, 8} {
		t.Run(fmt.Sprintf("degree_%d", degree), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(degree)))
			bt, err := NewBPlusTree(degree)
			require.NoError(t, err)
			present := make(map[int32]bool)

			for i := 0; i < 2000; i++ {
				k := int32(rng.Intn(300))
				if rng.Intn(3) == 0 {
					err := bt.Delete(intEntry(k))
					if present[k] {
						require.NoError(t, err)
						delete(present, k)
					} else {
						require.True(t, errors.Is(err, ErrKeyNotFound))
					}
				} else {
					require.NoError(t, bt.Insert(intEntry(k)))
					present[k] = true
				}
				require.NoError(t, bt.Validate(), "degree %d step %d key %d", degree, i, k)
				require.Equal(t, len(present), bt.Len())
			}

			for k := range present {
				_, err := bt.Get(types.NewIntField(k))
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringKeys(t *testing.T) {
	bt, err := NewBPlusTree(3)
	require.NoError(t, err)

	for _, s := range []string{"pear", "apple", "fig", "kiwi", "banana"} {
		require.NoError(t, bt.Insert(index.NewIndexEntry(types.NewStringField(s), nil)))
	}
	require.NoError(t, bt.Validate())

	var got []string
	bt.Ascend(func(e Entry) bool {
		got = append(got, e.Key.String())
		return true
	})
	assert.Equal(t, []string{"apple", "banana", "fig", "kiwi", "pear"}, got)
}
