package transaction

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
)

func TestNewTransactionID_Unique(t *testing.T) {
	const n = 1000
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[primitives.TransactionID]bool, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tid := NewTransactionID()
			mu.Lock()
			seen[tid] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.False(t, seen[primitives.NoTransaction])
}

func TestTransactionStatus_String(t *testing.T) {
	tests := []struct {
		status   TransactionStatus
		expected string
	}{
		{TxActive, "ACTIVE"},
		{TxCommitting, "COMMITTING"},
		{TxAborting, "ABORTING"},
		{TxCommitted, "COMMITTED"},
		{TxAborted, "ABORTED"},
		{TransactionStatus(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestTransactionContext_Lifecycle(t *testing.T) {
	ctx := NewTransactionContext(NewTransactionID())
	assert.True(t, ctx.IsActive())

	ctx.SetStatus(TxCommitting)
	assert.False(t, ctx.IsActive())
	assert.Equal(t, TxCommitting, ctx.Status())

	ctx.SetStatus(TxCommitted)
	d := ctx.Duration()
	assert.Equal(t, d, ctx.Duration(), "duration is frozen once the transaction ends")
}

func TestTransactionContext_DirtyPagesAndSteals(t *testing.T) {
	ctx := NewTransactionContext(NewTransactionID())
	p1 := page.NewPageDescriptor(1, 0)
	p2 := page.NewPageDescriptor(1, 1)

	ctx.MarkPageDirty(p1)
	ctx.MarkPageDirty(p1)
	ctx.MarkPageDirty(p2)
	assert.ElementsMatch(t, []page.PageDescriptor{p1, p2}, ctx.DirtyPages())

	first := []byte{1, 2, 3}
	ctx.RecordSteal(p1, first)
	first[0] = 9
	ctx.RecordSteal(p1, []byte{7, 7, 7})

	img, ok := ctx.UndoImage(p1)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, img, "first steal wins and is copied")

	_, ok = ctx.UndoImage(p2)
	assert.False(t, ok)
	assert.Equal(t, []page.PageDescriptor{p1}, ctx.StolenPages())

	ctx.RecordPageRead()
	ctx.RecordPageWrite()
	ctx.RecordTupleWrite()
	ctx.RecordTupleDelete()
	stats := ctx.GetStatistics()
	assert.Equal(t, TransactionStats{
		PagesRead: 1, PagesWritten: 1, TuplesWritten: 1, TuplesDeleted: 1, DirtyPages: 2, StolenPages: 1,
	}, stats)
}

func TestTransactionRegistry(t *testing.T) {
	reg := NewTransactionRegistry()

	a := reg.Begin()
	b := reg.GetOrCreate(NewTransactionID())
	assert.Same(t, b, reg.GetOrCreate(b.ID))
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, []primitives.TransactionID{a.ID, b.ID}, reg.GetAllTransactionIDs())

	got, err := reg.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	reg.Remove(a.ID)
	_, err = reg.Get(a.ID)
	assert.True(t, errors.Is(err, ErrTransactionNotFound))
	assert.Equal(t, 1, reg.Count())
}
