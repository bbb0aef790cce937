package lock

import (
	"sync"

	"storekit/pkg/primitives"
)

// LockType is the mode a transaction holds a page in.
type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// covers reports whether holding lt satisfies a request for want.
func (lt LockType) covers(want LockType) bool {
	return lt == ExclusiveLock || want == SharedLock
}

// pageLock is the lock state of a single page. A page is either held in
// shared mode by a set of transactions or in exclusive mode by exactly one.
// Waiters block on cond, which is broadcast on every release.
type pageLock struct {
	mu        sync.Mutex
	cond      *sync.Cond
	shared    map[primitives.TransactionID]struct{}
	exclusive primitives.TransactionID
}

func newPageLock() *pageLock {
	pl := &pageLock{shared: make(map[primitives.TransactionID]struct{})}
	pl.cond = sync.NewCond(&pl.mu)
	return pl
}

// heldBy returns the mode tid holds the page in. Caller holds pl.mu.
func (pl *pageLock) heldBy(tid primitives.TransactionID) (LockType, bool) {
	if pl.exclusive == tid && tid.IsValid() {
		return ExclusiveLock, true
	}
	if _, ok := pl.shared[tid]; ok {
		return SharedLock, true
	}
	return SharedLock, false
}

// conflicts returns the transactions other than tid whose locks prevent
// granting want. An exclusive request conflicts with every other holder,
// a shared request only with another transaction's exclusive lock.
// Caller holds pl.mu.
func (pl *pageLock) conflicts(tid primitives.TransactionID, want LockType) []primitives.TransactionID {
	var blockers []primitives.TransactionID
	if pl.exclusive.IsValid() && pl.exclusive != tid {
		blockers = append(blockers, pl.exclusive)
	}
	if want == ExclusiveLock {
		for holder := range pl.shared {
			if holder != tid {
				blockers = append(blockers, holder)
			}
		}
	}
	return blockers
}

// grant records tid as a holder in mode lt. An exclusive grant replaces a
// shared entry of the same transaction. Caller holds pl.mu.
func (pl *pageLock) grant(tid primitives.TransactionID, lt LockType) {
	if lt == ExclusiveLock {
		delete(pl.shared, tid)
		pl.exclusive = tid
		return
	}
	if pl.exclusive != tid {
		pl.shared[tid] = struct{}{}
	}
}

// release drops whatever tid holds and wakes every waiter.
// Caller holds pl.mu.
func (pl *pageLock) release(tid primitives.TransactionID) {
	if pl.exclusive == tid {
		pl.exclusive = primitives.NoTransaction
	}
	delete(pl.shared, tid)
	pl.cond.Broadcast()
}

func (pl *pageLock) locked() bool {
	return pl.exclusive.IsValid() || len(pl.shared) > 0
}
