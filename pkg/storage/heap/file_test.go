package heap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

func newTestHeapFile(t *testing.T, td *tuple.TupleDescription) (*HeapFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.dat")
	hf, err := NewHeapFile(primitives.Filepath(path), td)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hf.Close() })
	return hf, path
}

func TestHeapFile_EmptyFile(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType)
	hf, path := newTestHeapFile(t, td)

	assert.Equal(t, 0, hf.NumPages())
	assert.Empty(t, hf.GetAllTuples())
	assert.Equal(t, primitives.Filepath(path).Hash(), hf.GetID())
	assert.Same(t, td, hf.GetTupleDesc())

	hp, err := hf.ReadPage(5)
	require.NoError(t, err)
	assert.Equal(t, hp.NumSlots(), hp.NumEmptySlots())
	assert.Equal(t, page.NewPageDescriptor(hf.GetID(), 5), hp.GetID())
}

func TestHeapFile_AddTupleAppendsPages(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType, types.StringType)
	hf, _ := newTestHeapFile(t, td)
	perPage := SlotsPerPage(td.GetSize())

	for i := 0; i < perPage+1; i++ {
		hp, err := hf.AddTuple(makeTuple(t, td, i))
		require.NoError(t, err)
		if i < perPage {
			assert.Equal(t, primitives.PageNumber(0), hp.GetID().PageNo())
		} else {
			assert.Equal(t, primitives.PageNumber(1), hp.GetID().PageNo())
		}
	}
	assert.Equal(t, 2, hf.NumPages())
	assert.Len(t, hf.GetAllTuples(), perPage+1)

	_, err := hf.AddTuple(makeTuple(t, mustCreateTupleDesc(t, types.IntType), 0))
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestHeapFile_PersistAndReopen(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType, types.StringType)
	hf, path := newTestHeapFile(t, td)

	var written []*tuple.Tuple
	for i := 0; i < 40; i++ {
		tup := makeTuple(t, td, i)
		hp, err := hf.AddTuple(tup)
		require.NoError(t, err)
		require.NoError(t, hf.WritePage(hp))
		written = append(written, tup)
	}
	require.NoError(t, hf.Close())

	reopened, err := NewHeapFile(primitives.Filepath(path), td)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, hf.GetID(), reopened.GetID())
	assert.Equal(t, 2, reopened.NumPages())

	all := reopened.GetAllTuples()
	require.Len(t, all, len(written))
	for i := range written {
		assert.True(t, written[i].Equals(all[i]))
		assert.True(t, written[i].RecordID.Equals(all[i].RecordID))
	}
}

func TestHeapFile_DeleteTuple(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType)
	hf, _ := newTestHeapFile(t, td)

	tup := makeTuple(t, td, 1)
	_, err := hf.AddTuple(tup)
	require.NoError(t, err)
	rid := *tup.RecordID

	hp, err := hf.DeleteTuple(tup)
	require.NoError(t, err)
	assert.Equal(t, rid.PageID, hp.GetID())
	assert.Empty(t, hf.GetAllTuples())

	_, err = hf.DeleteTuple(tup)
	assert.True(t, errors.Is(err, ErrNoRecordID))

	ghost := makeTuple(t, td, 2)
	ghost.RecordID = tuple.NewRecordID(page.NewPageDescriptor(hf.GetID(), 9), 0)
	_, err = hf.DeleteTuple(ghost)
	assert.True(t, errors.Is(err, ErrPageNotFound))
	assert.True(t, dberror.IsCategory(err, dberror.CategoryLookup))

	ghost.RecordID = tuple.NewRecordID(page.NewPageDescriptor(hf.GetID()+1, 0), 0)
	_, err = hf.DeleteTuple(ghost)
	assert.True(t, errors.Is(err, ErrTableMismatch))
}

func TestHeapFile_ReadWritePage(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType)
	hf, _ := newTestHeapFile(t, td)

	hp, err := hf.ReadPage(0)
	require.NoError(t, err)
	tup := makeTuple(t, td, 3)
	require.NoError(t, hp.AddTuple(tup))
	require.NoError(t, hf.WritePage(hp))

	again, err := hf.ReadPage(0)
	require.NoError(t, err)
	assert.NotSame(t, hp, again)
	assert.Equal(t, hp.GetPageData(), again.GetPageData())
	assert.Equal(t, 1, hf.NumPages())
	assert.Len(t, hf.GetAllTuples(), 1)

	foreign, err := NewEmptyHeapPage(page.NewPageDescriptor(hf.GetID()+1, 0), td)
	require.NoError(t, err)
	assert.True(t, errors.Is(hf.WritePage(foreign), ErrTableMismatch))
}

func TestHeapFile_PartialTrailingBlock(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType)
	path := filepath.Join(t.TempDir(), "broken.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, page.PageSize+100), 0o644))

	_, err := NewHeapFile(primitives.Filepath(path), td)
	assert.True(t, errors.Is(err, page.ErrPartialPage))
	assert.True(t, dberror.IsCategory(err, dberror.CategoryFormat))
}

func TestHeapFile_AllocatePage(t *testing.T) {
	td := mustCreateTupleDesc(t, types.IntType)
	hf, _ := newTestHeapFile(t, td)

	pn, err := hf.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(0), pn)

	pn, err = hf.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(1), pn)
	assert.Equal(t, 2, hf.NumPages())

	// An unwritten page appended by AddTuple must not be handed out again.
	for i := 0; i < 2*SlotsPerPage(td.GetSize())+1; i++ {
		_, err := hf.AddTuple(makeTuple(t, td, i))
		require.NoError(t, err)
	}
	require.Equal(t, 3, hf.NumPages())

	pn, err = hf.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(3), pn)
}

func TestNewHeapFile_RecordTooLarge(t *testing.T) {
	typs := make([]types.Type, 40)
	for i := range typs {
		typs[i] = types.StringType
	}
	_, err := NewHeapFile(primitives.Filepath(filepath.Join(t.TempDir(), "x.dat")), mustCreateTupleDesc(t, typs...))
	assert.True(t, errors.Is(err, ErrRecordTooLarge))
}
