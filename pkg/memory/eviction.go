package memory

import (
	"go.uber.org/zap"

	"storekit/pkg/logging"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/storage/page"
)

// evictPage removes one page to make room for a page requested by
// requester. Candidates are scanned least recently used first:
//
//  1. a clean page no other transaction holds a lock on
//  2. any clean page
//  3. a page dirtied by requester itself; it is flushed and its pre-write
//     before-image is kept so an abort can restore the file
//
// A page dirtied by another transaction is never written. If nothing
// qualifies, ErrBufferPoolFull is returned and the caller should abort.
// Caller holds bp.mutex.
func (bp *BufferPool) evictPage(requester primitives.TransactionID) error {
	pids := bp.cache.GetAll()

	if victim, ok := bp.findClean(pids, func(pid page.PageDescriptor) bool {
		return !bp.lockManager.LockedByOthers(requester, pid)
	}); ok {
		bp.discard(victim, "clean unlocked")
		return nil
	}

	if victim, ok := bp.findClean(pids, func(page.PageDescriptor) bool { return true }); ok {
		bp.discard(victim, "clean")
		return nil
	}

	for _, pid := range pids {
		p, ok := bp.cache.Peek(pid)
		if !ok || p.IsDirty() != requester {
			continue
		}
		return bp.steal(requester, p)
	}

	bp.logger.Warn("buffer pool full, every cached page is dirty for another transaction",
		zap.Stringer("tx", requester),
		zap.Int("capacity", bp.cache.Capacity()))
	return ErrBufferPoolFull.
		WithDetailf("%d pages cached, none evictable for %s", len(pids), requester).
		WithOperation("evictPage", component)
}

func (bp *BufferPool) findClean(pids []page.PageDescriptor, accept func(page.PageDescriptor) bool) (page.PageDescriptor, bool) {
	for _, pid := range pids {
		p, ok := bp.cache.Peek(pid)
		if !ok || p.IsDirty().IsValid() {
			continue
		}
		if accept(pid) {
			return pid, true
		}
	}
	return page.PageDescriptor{}, false
}

func (bp *BufferPool) discard(pid page.PageDescriptor, reason string) {
	bp.cache.Remove(pid)
	bp.metrics.Eviction()
	bp.metrics.SetCachedPages(bp.cache.Size())
	logging.WithPage(pid).Debug("evicted page", zap.String("component", component), zap.String("reason", reason))
}

// steal writes a page dirtied by tid before tid completes and drops it
// from the cache. The first steal of a page records its before-image as
// the undo image used by abort.
func (bp *BufferPool) steal(tid primitives.TransactionID, p *heap.HeapPage) error {
	pid := p.GetID()
	tc := bp.transactions.GetOrCreate(tid)
	tc.RecordSteal(pid, p.BeforeImageData())

	if err := bp.flushPage(p); err != nil {
		return err
	}

	bp.cache.Remove(pid)
	bp.metrics.Eviction()
	bp.metrics.Steal()
	bp.metrics.SetCachedPages(bp.cache.Size())
	logging.WithPage(pid).Debug("stole dirty page", zap.String("component", component), zap.Stringer("tx", tid))
	return nil
}

// flushPage writes p to its heap file and marks it clean. The before-image
// is left alone; commit refreshes it separately.
func (bp *BufferPool) flushPage(p *heap.HeapPage) error {
	pid := p.GetID()
	hf, err := bp.tables.GetDbFile(pid.GetTableID())
	if err != nil {
		return err
	}

	if err := hf.WritePage(p); err != nil {
		return err
	}

	p.MarkDirty(false, primitives.NoTransaction)
	bp.metrics.Flush()
	return nil
}
