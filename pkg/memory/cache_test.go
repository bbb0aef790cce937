package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/storage/page"
	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

func cachePage(t *testing.T, n int) (page.PageDescriptor, *heap.HeapPage) {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"id"})
	require.NoError(t, err)
	pid := page.NewPageDescriptor(1, primitives.PageNumber(n))
	p, err := heap.NewEmptyHeapPage(pid, td)
	require.NoError(t, err)
	return pid, p
}

func TestLRUPageCache_InvalidSize(t *testing.T) {
	_, err := NewLRUPageCache(0)
	assert.Error(t, err)
}

func TestLRUPageCache_PutRefusesWhenFull(t *testing.T) {
	c, err := NewLRUPageCache(2)
	require.NoError(t, err)

	pid0, p0 := cachePage(t, 0)
	pid1, p1 := cachePage(t, 1)
	pid2, p2 := cachePage(t, 2)

	require.NoError(t, c.Put(pid0, p0))
	require.NoError(t, c.Put(pid1, p1))

	err = c.Put(pid2, p2)
	assert.True(t, errors.Is(err, ErrCacheFull))
	assert.Equal(t, 2, c.Size())

	// replacing an existing entry is not an insertion
	assert.NoError(t, c.Put(pid0, p0))
	assert.Equal(t, 2, c.Capacity())
}

func TestLRUPageCache_RecencyOrder(t *testing.T) {
	c, err := NewLRUPageCache(3)
	require.NoError(t, err)

	pids := make([]page.PageDescriptor, 3)
	for i := range pids {
		pid, p := cachePage(t, i)
		pids[i] = pid
		require.NoError(t, c.Put(pid, p))
	}
	assert.Equal(t, pids, c.GetAll())

	_, ok := c.Get(pids[0])
	require.True(t, ok)
	assert.Equal(t, []page.PageDescriptor{pids[1], pids[2], pids[0]}, c.GetAll())

	_, ok = c.Peek(pids[1])
	require.True(t, ok)
	assert.Equal(t, pids[1], c.GetAll()[0])

	c.Remove(pids[1])
	_, ok = c.Peek(pids[1])
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.GetAll())
}
