// Package memory implements the buffer pool: a capacity-bounded cache of
// heap pages with transaction-scoped dirty tracking, commit and abort.
package memory

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"storekit/pkg/dberror"
	"storekit/pkg/storage/heap"
	"storekit/pkg/storage/page"
)

var ErrCacheFull = dberror.New(dberror.CategoryCapacity, "CACHE_FULL", "page cache is at capacity")

// PageCache defines the interface for caching database pages in memory.
// It is responsible ONLY for storing and retrieving pages in memory.
// It knows nothing about transactions, locks, or durability.
type PageCache interface {
	// Get retrieves a page and marks it most recently used.
	Get(pid page.PageDescriptor) (*heap.HeapPage, bool)

	// Peek retrieves a page without touching its recency.
	Peek(pid page.PageDescriptor) (*heap.HeapPage, bool)

	// Put stores a page. Replacing an existing entry always succeeds; adding
	// a new one to a full cache fails with ErrCacheFull and never evicts.
	Put(pid page.PageDescriptor, p *heap.HeapPage) error

	// Remove removes a page. Does nothing if the page is absent.
	Remove(pid page.PageDescriptor)

	Size() int
	Capacity() int
	Clear()

	// GetAll returns the cached page ids, least recently used first.
	GetAll() []page.PageDescriptor
}

// LRUPageCache is a PageCache that keeps recency order in an LRU list.
// Eviction decisions are left to the buffer pool, which scans GetAll.
type LRUPageCache struct {
	maxSize int
	lru     *simplelru.LRU[page.PageDescriptor, *heap.HeapPage]
	mutex   sync.Mutex
}

// NewLRUPageCache creates a cache holding at most maxSize pages.
func NewLRUPageCache(maxSize int) (*LRUPageCache, error) {
	lru, err := simplelru.NewLRU[page.PageDescriptor, *heap.HeapPage](maxSize, nil)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.CategoryCapacity, "INVALID_CACHE_SIZE", "NewLRUPageCache", "PageCache")
	}
	return &LRUPageCache{maxSize: maxSize, lru: lru}, nil
}

func (c *LRUPageCache) Get(pid page.PageDescriptor) (*heap.HeapPage, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lru.Get(pid)
}

func (c *LRUPageCache) Peek(pid page.PageDescriptor) (*heap.HeapPage, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lru.Peek(pid)
}

func (c *LRUPageCache) Put(pid page.PageDescriptor, p *heap.HeapPage) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.lru.Contains(pid) && c.lru.Len() >= c.maxSize {
		return ErrCacheFull.WithDetailf("capacity %d, adding %s", c.maxSize, pid)
	}
	c.lru.Add(pid, p)
	return nil
}

func (c *LRUPageCache) Remove(pid page.PageDescriptor) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lru.Remove(pid)
}

func (c *LRUPageCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lru.Len()
}

func (c *LRUPageCache) Capacity() int {
	return c.maxSize
}

func (c *LRUPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lru.Purge()
}

func (c *LRUPageCache) GetAll() []page.PageDescriptor {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lru.Keys()
}
