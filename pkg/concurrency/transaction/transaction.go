package transaction

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
)

var transactionCounter atomic.Uint64

// NewTransactionID returns a fresh id. Ids start at 1 and increase by one
// per call for the life of the process; 0 is primitives.NoTransaction.
func NewTransactionID() primitives.TransactionID {
	return primitives.TransactionID(transactionCounter.Add(1))
}

// TransactionStatus represents the current state of a transaction
type TransactionStatus int

const (
	TxActive TransactionStatus = iota
	TxCommitting
	TxAborting
	TxCommitted
	TxAborted
)

func (ts TransactionStatus) String() string {
	switch ts {
	case TxActive:
		return "ACTIVE"
	case TxCommitting:
		return "COMMITTING"
	case TxAborting:
		return "ABORTING"
	case TxCommitted:
		return "COMMITTED"
	case TxAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

type TransactionStats struct {
	PagesRead     int
	PagesWritten  int
	TuplesWritten int
	TuplesDeleted int
	DirtyPages    int
	StolenPages   int
}

// TransactionContext holds the buffer pool's bookkeeping for one
// transaction: the pages it dirtied, the before-images of dirty pages that
// were flushed early to make room in the cache, and counters.
type TransactionContext struct {
	ID primitives.TransactionID

	status    TransactionStatus
	startTime time.Time
	endTime   time.Time
	mutex     sync.RWMutex

	dirtyPages map[page.PageDescriptor]struct{}

	// undoImages holds, per stolen page, the on-disk bytes from before the
	// transaction first wrote it. Abort writes them back.
	undoImages map[page.PageDescriptor][]byte

	pagesRead     int
	pagesWritten  int
	tuplesWritten int
	tuplesDeleted int
}

func NewTransactionContext(tid primitives.TransactionID) *TransactionContext {
	return &TransactionContext{
		ID:         tid,
		status:     TxActive,
		startTime:  time.Now(),
		dirtyPages: make(map[page.PageDescriptor]struct{}),
		undoImages: make(map[page.PageDescriptor][]byte),
	}
}

// IsActive returns true if the transaction is still active
func (tc *TransactionContext) IsActive() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status == TxActive
}

func (tc *TransactionContext) Status() TransactionStatus {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status
}

// SetStatus moves the transaction to status. Terminal states record the end time.
func (tc *TransactionContext) SetStatus(status TransactionStatus) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	tc.status = status
	if status == TxCommitted || status == TxAborted {
		tc.endTime = time.Now()
	}
}

// Duration returns how long the transaction ran, or has been running.
func (tc *TransactionContext) Duration() time.Duration {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if tc.endTime.IsZero() {
		return time.Since(tc.startTime)
	}
	return tc.endTime.Sub(tc.startTime)
}

// MarkPageDirty records that the transaction modified pid.
func (tc *TransactionContext) MarkPageDirty(pid page.PageDescriptor) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.dirtyPages[pid] = struct{}{}
}

// DirtyPages returns the pages modified by the transaction, in no particular order.
func (tc *TransactionContext) DirtyPages() []page.PageDescriptor {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	pids := make([]page.PageDescriptor, 0, len(tc.dirtyPages))
	for pid := range tc.dirtyPages {
		pids = append(pids, pid)
	}
	return pids
}

// RecordSteal remembers before as the undo image of pid. Only the first
// steal of a page is kept: later steals flush bytes the transaction itself wrote.
func (tc *TransactionContext) RecordSteal(pid page.PageDescriptor, before []byte) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if _, ok := tc.undoImages[pid]; ok {
		return
	}
	tc.undoImages[pid] = slices.Clone(before)
}

// UndoImage returns the saved undo image for pid, if the page was stolen.
func (tc *TransactionContext) UndoImage(pid page.PageDescriptor) ([]byte, bool) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	img, ok := tc.undoImages[pid]
	return img, ok
}

// StolenPages returns the pages that have an undo image.
func (tc *TransactionContext) StolenPages() []page.PageDescriptor {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	pids := make([]page.PageDescriptor, 0, len(tc.undoImages))
	for pid := range tc.undoImages {
		pids = append(pids, pid)
	}
	return pids
}

func (tc *TransactionContext) RecordPageRead() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.pagesRead++
}

func (tc *TransactionContext) RecordPageWrite() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.pagesWritten++
}

func (tc *TransactionContext) RecordTupleWrite() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesWritten++
}

func (tc *TransactionContext) RecordTupleDelete() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesDeleted++
}

// GetStatistics returns a snapshot of the transaction's counters.
func (tc *TransactionContext) GetStatistics() TransactionStats {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return TransactionStats{
		PagesRead:     tc.pagesRead,
		PagesWritten:  tc.pagesWritten,
		TuplesWritten: tc.tuplesWritten,
		TuplesDeleted: tc.tuplesDeleted,
		DirtyPages:    len(tc.dirtyPages),
		StolenPages:   len(tc.undoImages),
	}
}
