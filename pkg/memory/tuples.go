package memory

import (
	"cmp"
	"slices"

	"storekit/pkg/concurrency/lock"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/storage/page"
	"storekit/pkg/tuple"
)

// InsertTuple adds t to the first page of tableID that tid holds an
// exclusive lock on and that has a free slot, lowest page number first.
// The page is marked dirty for tid and t.RecordID is set.
//
// InsertTuple never takes locks: the caller must already have fetched the
// target page with GetPage(..., ReadWrite) (or NewPage). ErrNoPageWithSpace
// is returned when no such page exists.
func (bp *BufferPool) InsertTuple(tid primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	if t == nil {
		return heap.ErrSchemaMismatch.WithDetailf("nil tuple").WithOperation("InsertTuple", component)
	}

	candidates := bp.exclusivePages(tid, tableID)

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	for _, pid := range candidates {
		p, err := bp.lockedPage(tid, pid)
		if err != nil {
			return err
		}
		if !p.HasEmptySlot() {
			continue
		}
		if err := p.AddTuple(t); err != nil {
			return err
		}
		bp.markDirty(tid, p)
		bp.transactions.GetOrCreate(tid).RecordTupleWrite()
		return nil
	}

	return ErrNoPageWithSpace.
		WithDetailf("%s, table %s, %d locked pages", tid, tableID, len(candidates)).
		WithOperation("InsertTuple", component)
}

// DeleteTuple removes t from the page named by its record id. tid must
// hold an exclusive lock on that page.
func (bp *BufferPool) DeleteTuple(tid primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return heap.ErrNoRecordID.WithOperation("DeleteTuple", component)
	}

	pid := t.RecordID.PageID
	if pid.GetTableID() != tableID {
		return heap.ErrTableMismatch.WithDetailf("%s is not in table %s", pid, tableID)
	}

	if mode, ok := bp.lockManager.LockType(tid, pid); !ok || mode != lock.ExclusiveLock {
		return ErrPageNotLocked.WithDetailf("%s on %s", tid, pid).WithOperation("DeleteTuple", component)
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	p, err := bp.lockedPage(tid, pid)
	if err != nil {
		return err
	}

	if err := p.DeleteTuple(t); err != nil {
		return err
	}
	bp.markDirty(tid, p)
	bp.transactions.GetOrCreate(tid).RecordTupleDelete()
	return nil
}

// exclusivePages returns the pages of tableID that tid holds exclusively,
// in page number order.
func (bp *BufferPool) exclusivePages(tid primitives.TransactionID, tableID primitives.TableID) []page.PageDescriptor {
	var pids []page.PageDescriptor
	for pid, mode := range bp.lockManager.HeldPages(tid) {
		if mode == lock.ExclusiveLock && pid.GetTableID() == tableID {
			pids = append(pids, pid)
		}
	}
	slices.SortFunc(pids, func(a, b page.PageDescriptor) int {
		return cmp.Compare(a.PageNo(), b.PageNo())
	})
	return pids
}

// lockedPage returns a page tid already holds a lock on. A clean page can
// be evicted while another transaction still holds its lock, so a miss
// reads it back through the cache. Caller holds bp.mutex.
func (bp *BufferPool) lockedPage(tid primitives.TransactionID, pid page.PageDescriptor) (*heap.HeapPage, error) {
	if p, ok := bp.cache.Peek(pid); ok {
		return p, nil
	}
	return bp.loadPageLocked(tid, pid)
}

// markDirty records p as dirtied by tid. Caller holds bp.mutex.
func (bp *BufferPool) markDirty(tid primitives.TransactionID, p *heap.HeapPage) {
	p.MarkDirty(true, tid)
	tc := bp.transactions.GetOrCreate(tid)
	tc.MarkPageDirty(p.GetID())
	tc.RecordPageWrite()
}
