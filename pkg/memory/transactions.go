package memory

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storekit/pkg/concurrency/transaction"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/storage/page"
)

// CommitTransaction makes tid's changes durable and releases its locks.
func (bp *BufferPool) CommitTransaction(tid primitives.TransactionID) error {
	return bp.TransactionComplete(tid, true)
}

// AbortTransaction undoes tid's changes and releases its locks.
func (bp *BufferPool) AbortTransaction(tid primitives.TransactionID) error {
	return bp.TransactionComplete(tid, false)
}

// TransactionComplete ends tid.
//
// Commit writes every page tid dirtied to its file (in parallel) and makes
// the written bytes the page's new before-image. Abort replaces every page
// tid dirtied with its before-image; pages that were stolen during
// eviction are also restored on disk from their undo image.
//
// A commit whose flush fails is rolled back like an abort, including pages
// that were already written, so no transaction can observe its changes.
// All of tid's locks are released afterwards, even when an IO error is
// returned.
func (bp *BufferPool) TransactionComplete(tid primitives.TransactionID, commit bool) error {
	defer bp.lockManager.UnlockAllPages(tid)

	tc, err := bp.transactions.Get(tid)
	if err != nil {
		// Never touched the pool: nothing to flush or undo.
		return nil
	}
	defer bp.transactions.Remove(tid)

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	log := bp.logger.With(zap.Stringer("tx", tid))
	if commit {
		tc.SetStatus(transaction.TxCommitting)
		if flushed, err := bp.commitLocked(tc); err != nil {
			tc.SetStatus(transaction.TxAborting)
			rollbackErr := bp.rollbackFailedCommit(tc, flushed)
			tc.SetStatus(transaction.TxAborted)
			bp.metrics.TransactionDone(false)
			log.Warn("commit failed, transaction rolled back", zap.Error(err), zap.NamedError("rollback_error", rollbackErr))
			return errors.Wrapf(multierr.Append(err, rollbackErr), "committing %s", tid)
		}
		tc.SetStatus(transaction.TxCommitted)
	} else {
		tc.SetStatus(transaction.TxAborting)
		if err := bp.abortLocked(tc); err != nil {
			tc.SetStatus(transaction.TxAborted)
			log.Warn("abort failed", zap.Error(err))
			return errors.Wrapf(err, "aborting %s", tid)
		}
		tc.SetStatus(transaction.TxAborted)
	}

	bp.metrics.TransactionDone(commit)
	stats := tc.GetStatistics()
	log.Debug("transaction complete",
		zap.Bool("commit", commit),
		zap.Int("dirty_pages", stats.DirtyPages),
		zap.Int("stolen_pages", stats.StolenPages),
		zap.Duration("duration", tc.Duration()))
	return nil
}

// commitLocked flushes tid's cached dirty pages and, once every write has
// succeeded, makes them the new before-images. It returns the pages that
// reached disk. Caller holds bp.mutex.
func (bp *BufferPool) commitLocked(tc *transaction.TransactionContext) ([]*heap.HeapPage, error) {
	var pages []*heap.HeapPage
	for _, pid := range tc.DirtyPages() {
		if p, ok := bp.cache.Peek(pid); ok && p.IsDirty() == tc.ID {
			pages = append(pages, p)
		}
	}

	written := make([]bool, len(pages))
	var g errgroup.Group
	for i, p := range pages {
		g.Go(func() error {
			if err := bp.flushPage(p); err != nil {
				return err
			}
			written[i] = true
			return nil
		})
	}
	err := g.Wait()

	var flushed []*heap.HeapPage
	for i, p := range pages {
		if written[i] {
			flushed = append(flushed, p)
		}
	}
	if err != nil {
		return flushed, err
	}

	for _, p := range flushed {
		p.SetBeforeImage()
	}
	return flushed, nil
}

// rollbackFailedCommit undoes a commit that failed partway. Pages already
// written are restored on disk from their before-image, pages still dirty
// are replaced in the cache and stolen pages are restored from their undo
// image. Caller holds bp.mutex.
func (bp *BufferPool) rollbackFailedCommit(tc *transaction.TransactionContext, flushed []*heap.HeapPage) error {
	var errs error
	for _, p := range flushed {
		if _, stolen := tc.UndoImage(p.GetID()); stolen {
			continue
		}
		errs = multierr.Append(errs, bp.restoreStolen(p.GetID(), p.BeforeImageData()))
	}
	return multierr.Append(errs, bp.abortLocked(tc))
}

// abortLocked rolls back every page tid dirtied. Caller holds bp.mutex.
func (bp *BufferPool) abortLocked(tc *transaction.TransactionContext) error {
	var errs error
	for _, pid := range tc.DirtyPages() {
		if undo, stolen := tc.UndoImage(pid); stolen {
			errs = multierr.Append(errs, bp.restoreStolen(pid, undo))
			continue
		}

		p, ok := bp.cache.Peek(pid)
		if !ok || p.IsDirty() != tc.ID {
			continue
		}

		before, err := p.GetBeforeImage()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, bp.cache.Put(pid, before))
	}
	return errs
}

// restoreStolen replaces any cached copy of pid with the undo image and
// writes the image back to its file. The cache is updated first so a failed
// write cannot leave undone changes visible.
func (bp *BufferPool) restoreStolen(pid page.PageDescriptor, undo []byte) error {
	hf, err := bp.tables.GetDbFile(pid.GetTableID())
	if err != nil {
		return err
	}

	restored, err := heap.NewHeapPage(pid, undo, hf.GetTupleDesc())
	if err != nil {
		return err
	}

	if _, cached := bp.cache.Peek(pid); cached {
		if err := bp.cache.Put(pid, restored); err != nil {
			return err
		}
	}

	if err := hf.WritePage(restored); err != nil {
		return err
	}
	bp.metrics.Flush()
	return nil
}
