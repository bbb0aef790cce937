package lock

import (
	"go.uber.org/zap"

	"storekit/pkg/dberror"
	"storekit/pkg/logging"
	"storekit/pkg/monitoring"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
)

var (
	ErrDeadlock = dberror.New(dberror.CategoryConcurrency, "DEADLOCK_DETECTED",
		"lock request would complete a wait-for cycle")
	ErrInvalidTransaction = dberror.New(dberror.CategoryConcurrency, "INVALID_TRANSACTION",
		"lock requested without a transaction")
)

// LockManager grants page-level shared and exclusive locks under strict
// two-phase locking. Requests that conflict block until a holder releases;
// a request that would close a wait-for cycle fails with ErrDeadlock.
type LockManager struct {
	table    *LockTable
	depGraph *DependencyGraph
	metrics  *monitoring.StorageMetrics
	logger   *zap.Logger
}

// NewLockManager creates a lock manager. metrics may be nil.
func NewLockManager(metrics *monitoring.StorageMetrics) *LockManager {
	return &LockManager{
		table:    NewLockTable(),
		depGraph: NewDependencyGraph(),
		metrics:  metrics,
		logger:   logging.WithComponent("LockManager"),
	}
}

// LockPage acquires a lock on pid for tid, shared or exclusive.
//
// Locks are re-entrant and an exclusive lock satisfies a shared request.
// A shared holder that asks for exclusive is upgraded once it is the only
// holder. While blocked, tid has wait-for edges to the current holders;
// if those edges close a cycle through tid the request fails immediately
// with ErrDeadlock and tid keeps the locks it already had.
func (lm *LockManager) LockPage(tid primitives.TransactionID, pid page.PageDescriptor, exclusive bool) error {
	if !tid.IsValid() {
		return ErrInvalidTransaction.WithOperation("LockPage", "LockManager")
	}

	want := SharedLock
	if exclusive {
		want = ExclusiveLock
	}

	pl := lm.table.pageLock(pid)
	pl.mu.Lock()
	defer pl.mu.Unlock()

	waited := false
	for {
		if held, ok := pl.heldBy(tid); ok && held.covers(want) {
			break
		}

		blockers := pl.conflicts(tid, want)
		if len(blockers) == 0 {
			pl.grant(tid, want)
			break
		}

		if lm.depGraph.WaitFor(tid, blockers) {
			lm.metrics.Deadlock()
			lm.logger.Warn("deadlock detected",
				zap.Stringer("tx", tid),
				zap.Stringer("page", pid),
				zap.Stringer("mode", want),
				zap.Any("holders", blockers))
			return ErrDeadlock.
				WithDetailf("%s requesting %s lock on %s", tid, want, pid).
				WithOperation("LockPage", "LockManager")
		}

		if !waited {
			waited = true
			lm.metrics.LockWait()
			lm.logger.Debug("waiting for lock",
				zap.Stringer("tx", tid),
				zap.Stringer("page", pid),
				zap.Stringer("mode", want))
		}
		pl.cond.Wait()
	}

	if waited {
		lm.depGraph.RemoveOutgoing(tid)
	}

	mode, _ := pl.heldBy(tid)
	lm.table.recordHeld(tid, pid, mode)
	return nil
}

// UnlockPage releases tid's lock on pid. Releasing mid-transaction breaks
// two-phase locking and is only meant for callers that know the page was
// never modified.
func (lm *LockManager) UnlockPage(tid primitives.TransactionID, pid page.PageDescriptor) {
	if pl, ok := lm.table.lookup(pid); ok {
		pl.mu.Lock()
		pl.release(tid)
		pl.mu.Unlock()
	}
	lm.table.forget(tid, pid)
}

// UnlockAllPages releases every lock tid holds and removes it from the
// wait-for graph. Called when a transaction commits or aborts.
func (lm *LockManager) UnlockAllPages(tid primitives.TransactionID) {
	for _, pid := range lm.table.takeAll(tid) {
		if pl, ok := lm.table.lookup(pid); ok {
			pl.mu.Lock()
			pl.release(tid)
			pl.mu.Unlock()
		}
	}
	lm.depGraph.RemoveTransaction(tid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (lm *LockManager) HoldsLock(tid primitives.TransactionID, pid page.PageDescriptor) bool {
	_, ok := lm.table.LockType(tid, pid)
	return ok
}

// LockType returns the mode tid holds pid in.
func (lm *LockManager) LockType(tid primitives.TransactionID, pid page.PageDescriptor) (LockType, bool) {
	return lm.table.LockType(tid, pid)
}

// IsPageLocked reports whether any transaction holds a lock on pid.
func (lm *LockManager) IsPageLocked(pid page.PageDescriptor) bool {
	pl, ok := lm.table.lookup(pid)
	if !ok {
		return false
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.locked()
}

// LockedByOthers reports whether a transaction other than tid holds a lock
// on pid.
func (lm *LockManager) LockedByOthers(tid primitives.TransactionID, pid page.PageDescriptor) bool {
	pl, ok := lm.table.lookup(pid)
	if !ok {
		return false
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.conflicts(tid, ExclusiveLock)) > 0
}

// HeldPages returns the pages tid holds and the mode of each.
func (lm *LockManager) HeldPages(tid primitives.TransactionID) map[page.PageDescriptor]LockType {
	return lm.table.HeldPages(tid)
}

// DependencyGraph exposes the wait-for graph for inspection.
func (lm *LockManager) DependencyGraph() *DependencyGraph {
	return lm.depGraph
}
