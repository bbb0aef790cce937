package lock

import (
	"sync"

	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
)

// LockTable indexes lock state two ways: page -> per-page lock state and
// transaction -> pages it holds. Page entries are created on first use and
// never removed, so a waiter can never be left blocked on an orphaned entry.
type LockTable struct {
	pagesMu sync.Mutex
	pages   map[page.PageDescriptor]*pageLock

	heldMu sync.RWMutex
	held   map[primitives.TransactionID]map[page.PageDescriptor]LockType
}

func NewLockTable() *LockTable {
	return &LockTable{
		pages: make(map[page.PageDescriptor]*pageLock),
		held:  make(map[primitives.TransactionID]map[page.PageDescriptor]LockType),
	}
}

// pageLock returns the entry for pid, creating it if needed.
func (lt *LockTable) pageLock(pid page.PageDescriptor) *pageLock {
	lt.pagesMu.Lock()
	defer lt.pagesMu.Unlock()

	pl, ok := lt.pages[pid]
	if !ok {
		pl = newPageLock()
		lt.pages[pid] = pl
	}
	return pl
}

// lookup returns the entry for pid without creating one.
func (lt *LockTable) lookup(pid page.PageDescriptor) (*pageLock, bool) {
	lt.pagesMu.Lock()
	defer lt.pagesMu.Unlock()

	pl, ok := lt.pages[pid]
	return pl, ok
}

func (lt *LockTable) recordHeld(tid primitives.TransactionID, pid page.PageDescriptor, mode LockType) {
	lt.heldMu.Lock()
	defer lt.heldMu.Unlock()

	pages, ok := lt.held[tid]
	if !ok {
		pages = make(map[page.PageDescriptor]LockType)
		lt.held[tid] = pages
	}
	pages[pid] = mode
}

func (lt *LockTable) forget(tid primitives.TransactionID, pid page.PageDescriptor) {
	lt.heldMu.Lock()
	defer lt.heldMu.Unlock()

	if pages, ok := lt.held[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(lt.held, tid)
		}
	}
}

// takeAll removes and returns every page tid holds.
func (lt *LockTable) takeAll(tid primitives.TransactionID) []page.PageDescriptor {
	lt.heldMu.Lock()
	defer lt.heldMu.Unlock()

	pages := lt.held[tid]
	delete(lt.held, tid)

	pids := make([]page.PageDescriptor, 0, len(pages))
	for pid := range pages {
		pids = append(pids, pid)
	}
	return pids
}

// LockType returns the mode tid holds pid in.
func (lt *LockTable) LockType(tid primitives.TransactionID, pid page.PageDescriptor) (LockType, bool) {
	lt.heldMu.RLock()
	defer lt.heldMu.RUnlock()

	mode, ok := lt.held[tid][pid]
	return mode, ok
}

// HeldPages returns a copy of the pages tid currently holds.
func (lt *LockTable) HeldPages(tid primitives.TransactionID) map[page.PageDescriptor]LockType {
	lt.heldMu.RLock()
	defer lt.heldMu.RUnlock()

	out := make(map[page.PageDescriptor]LockType, len(lt.held[tid]))
	for pid, mode := range lt.held[tid] {
		out[pid] = mode
	}
	return out
}
