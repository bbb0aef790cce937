package memory

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storekit/pkg/concurrency/lock"
	"storekit/pkg/concurrency/transaction"
	"storekit/pkg/dberror"
	"storekit/pkg/logging"
	"storekit/pkg/monitoring"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/storage/page"
)

const (
	// DefaultPageCount is the buffer pool capacity used when none is configured.
	DefaultPageCount = 50

	component = "BufferPool"
)

var (
	ErrBufferPoolFull = dberror.New(dberror.CategoryConcurrency, "BUFFER_POOL_FULL",
		"no cached page can be evicted")
	ErrNoPageWithSpace = dberror.New(dberror.CategoryCapacity, "NO_PAGE_WITH_SPACE",
		"no exclusively locked page of the table has a free slot")
	ErrPageNotLocked = dberror.New(dberror.CategoryConcurrency, "PAGE_NOT_LOCKED",
		"transaction does not hold an exclusive lock on the page")
	ErrInvalidCapacity = dberror.New(dberror.CategoryCapacity, "INVALID_CAPACITY",
		"buffer pool capacity must be positive")
)

// Permissions represents the access level for database operations
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) String() string {
	if p == ReadWrite {
		return "READ_WRITE"
	}
	return "READ_ONLY"
}

// TableProvider resolves a table id to its heap file.
type TableProvider interface {
	GetDbFile(tableID primitives.TableID) (*heap.HeapFile, error)
}

// BufferPool manages an in-memory cache of heap pages and handles
// transaction-aware page operations. Every page access goes through
// GetPage, which takes the page lock first (strict 2PL) and then serves the
// page from cache or disk.
//
// A cached page is either clean or dirty for exactly one transaction. Dirty
// pages are written on commit and replaced by their before-image on abort.
// When the pool is full a page is evicted before a new one is loaded; see
// evictPage for the victim order.
type BufferPool struct {
	tables       TableProvider
	lockManager  *lock.LockManager
	cache        PageCache
	transactions *transaction.TransactionRegistry
	metrics      *monitoring.StorageMetrics
	logger       *zap.Logger
	mutex        sync.Mutex
}

// NewBufferPool creates a buffer pool holding at most capacity pages.
// metrics may be nil.
func NewBufferPool(capacity int, tables TableProvider, lm *lock.LockManager, metrics *monitoring.StorageMetrics) (*BufferPool, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity.WithDetailf("got %d", capacity)
	}

	cache, err := NewLRUPageCache(capacity)
	if err != nil {
		return nil, err
	}

	return &BufferPool{
		tables:       tables,
		lockManager:  lm,
		cache:        cache,
		transactions: transaction.NewTransactionRegistry(),
		metrics:      metrics,
		logger:       logging.WithComponent(component),
	}, nil
}

// GetPage retrieves a page with specified permissions for a transaction.
// This is the main entry point for all page access.
//
// ReadOnly takes a shared lock and ReadWrite an exclusive one; the call
// blocks until the lock is granted and fails with lock.ErrDeadlock if
// waiting would deadlock, in which case the caller must abort tid. On a
// cache miss a page is evicted first when the pool is full.
func (bp *BufferPool) GetPage(tid primitives.TransactionID, tableID primitives.TableID, pageNo primitives.PageNumber, perm Permissions) (*heap.HeapPage, error) {
	pid := page.NewPageDescriptor(tableID, pageNo)

	if err := bp.lockManager.LockPage(tid, pid, perm == ReadWrite); err != nil {
		return nil, err
	}

	tc := bp.transactions.GetOrCreate(tid)
	tc.RecordPageRead()

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	return bp.loadPageLocked(tid, pid)
}

// loadPageLocked serves pid from cache or disk. Caller holds bp.mutex.
func (bp *BufferPool) loadPageLocked(tid primitives.TransactionID, pid page.PageDescriptor) (*heap.HeapPage, error) {
	if p, ok := bp.cache.Get(pid); ok {
		bp.metrics.CacheHit()
		return p, nil
	}
	bp.metrics.CacheMiss()

	hf, err := bp.tables.GetDbFile(pid.GetTableID())
	if err != nil {
		return nil, err
	}

	if bp.cache.Size() >= bp.cache.Capacity() {
		if err := bp.evictPage(tid); err != nil {
			return nil, err
		}
	}

	p, err := hf.ReadPage(pid.PageNo())
	if err != nil {
		return nil, err
	}

	if err := bp.cache.Put(pid, p); err != nil {
		return nil, err
	}
	bp.metrics.SetCachedPages(bp.cache.Size())
	return p, nil
}

// NewPage appends a zero-filled page to the table's file, locks it
// exclusively for tid and caches it.
func (bp *BufferPool) NewPage(tid primitives.TransactionID, tableID primitives.TableID) (*heap.HeapPage, error) {
	hf, err := bp.tables.GetDbFile(tableID)
	if err != nil {
		return nil, err
	}

	pageNo, err := hf.AllocatePage()
	if err != nil {
		return nil, err
	}

	bp.logger.Debug("allocated page",
		zap.Stringer("tx", tid),
		zap.Stringer("table", tableID),
		zap.Uint64("page_no", uint64(pageNo)))
	return bp.GetPage(tid, tableID, pageNo, ReadWrite)
}

// ReleasePage releases tid's lock on a page. Calling it before the
// transaction completes breaks two-phase locking; it exists for callers
// that know the page was only inspected.
func (bp *BufferPool) ReleasePage(tid primitives.TransactionID, tableID primitives.TableID, pageNo primitives.PageNumber) {
	bp.lockManager.UnlockPage(tid, page.NewPageDescriptor(tableID, pageNo))
}

// HoldsLock reports whether tid holds any lock on the page.
func (bp *BufferPool) HoldsLock(tid primitives.TransactionID, tableID primitives.TableID, pageNo primitives.PageNumber) bool {
	return bp.lockManager.HoldsLock(tid, page.NewPageDescriptor(tableID, pageNo))
}

// Size returns the number of cached pages.
func (bp *BufferPool) Size() int {
	return bp.cache.Size()
}

// Capacity returns the maximum number of cached pages.
func (bp *BufferPool) Capacity() int {
	return bp.cache.Capacity()
}

// ActiveTransactions returns the ids of transactions that have touched the
// pool and not completed.
func (bp *BufferPool) ActiveTransactions() []primitives.TransactionID {
	return bp.transactions.GetAllTransactionIDs()
}

// TransactionStats returns the counters of an active transaction.
func (bp *BufferPool) TransactionStats(tid primitives.TransactionID) (transaction.TransactionStats, error) {
	tc, err := bp.transactions.Get(tid)
	if err != nil {
		return transaction.TransactionStats{}, err
	}
	return tc.GetStatistics(), nil
}

// Close aborts every active transaction and drops the cache.
func (bp *BufferPool) Close() error {
	var errs error
	for _, tid := range bp.ActiveTransactions() {
		errs = multierr.Append(errs, bp.AbortTransaction(tid))
	}

	bp.mutex.Lock()
	bp.cache.Clear()
	bp.mutex.Unlock()
	bp.metrics.SetCachedPages(0)
	return errs
}
