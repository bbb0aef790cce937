package heap

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
	"storekit/pkg/tuple"
)

const fileComponent = "HeapFile"

var (
	ErrPageNotFound  = dberror.New(dberror.CategoryLookup, "PAGE_NOT_FOUND", "page does not exist in heap file")
	ErrTableMismatch = dberror.New(dberror.CategoryLookup, "TABLE_MISMATCH", "page belongs to another table")
)

// HeapFile represents a collection of pages stored in a single OS file on disk.
//
// Storage Layout:
//   - Each page is exactly page.PageSize bytes
//   - Pages are numbered sequentially starting from 0
//   - Page offsets are calculated as: pageNo * page.PageSize
//
// On open every existing page is decoded into memory. AddTuple and
// DeleteTuple work on those in-memory pages and leave persisting to the
// caller; ReadPage always decodes a fresh copy from disk.
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription
	pages     []*HeapPage
	mutex     sync.RWMutex
}

// NewHeapFile opens (or creates) the heap file at filename and loads all of
// its pages.
//
// Parameters:
//   - filename: Path to the heap file on disk (cannot be empty)
//   - td: Schema definition for tuples that will be stored in this file
//
// Returns:
//   - *HeapFile: The initialized heap file
//   - error: If the file cannot be opened or a page cannot be decoded
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	if SlotsPerPage(td.GetSize()) == 0 {
		return nil, ErrRecordTooLarge.WithDetailf("record size %d", td.GetSize())
	}

	baseFile, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, err
	}

	hf := &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
	}

	n, err := baseFile.NumPages()
	if err != nil {
		_ = baseFile.Close()
		return nil, err
	}

	hf.pages = make([]*HeapPage, 0, n)
	for pn := primitives.PageNumber(0); pn < n; pn++ {
		hp, err := hf.ReadPage(pn)
		if err != nil {
			_ = baseFile.Close()
			return nil, errors.Wrapf(err, "loading page %d of %s", pn, filename)
		}
		hf.pages = append(hf.pages, hp)
	}

	return hf, nil
}

// GetTupleDesc returns the schema definition for tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// NumPages returns the number of pages known to the file, including pages
// appended by AddTuple that have not been written yet.
func (hf *HeapFile) NumPages() int {
	hf.mutex.RLock()
	defer hf.mutex.RUnlock()
	return len(hf.pages)
}

// ReadPage decodes page pageNo from disk.
//
// Behavior:
//   - Returns an empty page when pageNo is at or past the end of the file
//   - Fails with page.ErrPartialPage when the file ends inside the page
func (hf *HeapFile) ReadPage(pageNo primitives.PageNumber) (*HeapPage, error) {
	pid := page.NewPageDescriptor(hf.GetID(), pageNo)

	pageData, err := hf.ReadPageData(pageNo)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewEmptyHeapPage(pid, hf.tupleDesc)
		}
		return nil, err
	}

	return NewHeapPage(pid, pageData, hf.tupleDesc)
}

// WritePage writes p to disk at its page number and refreshes the file's
// in-memory copy of that page.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return errors.New("page cannot be nil")
	}

	pid := p.GetID()
	if pid.GetTableID() != hf.GetID() {
		return ErrTableMismatch.WithDetailf("%s written to table %d", pid, hf.GetID())
	}

	data := p.GetPageData()
	if err := hf.WritePageData(pid.PageNo(), data); err != nil {
		return err
	}

	fresh, err := NewHeapPage(pid, data, hf.tupleDesc)
	if err != nil {
		return err
	}

	hf.mutex.Lock()
	defer hf.mutex.Unlock()
	hf.growLocked(pid.PageNo())
	hf.pages[pid.PageNo()] = fresh
	return nil
}

// AddTuple stores t on the first in-memory page with a free slot, appending
// a new page (numbered len(pages)) when all are full. The returned page
// holds the tuple; the caller is responsible for writing it.
func (hf *HeapFile) AddTuple(t *tuple.Tuple) (*HeapPage, error) {
	if !t.TupleDesc.Equals(hf.tupleDesc) {
		return nil, ErrSchemaMismatch.WithOperation("AddTuple", fileComponent)
	}

	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	for _, hp := range hf.pages {
		if !hp.HasEmptySlot() {
			continue
		}
		if err := hp.AddTuple(t); err != nil {
			return nil, err
		}
		return hp, nil
	}

	pid := page.NewPageDescriptor(hf.GetID(), primitives.PageNumber(len(hf.pages)))
	hp, err := NewEmptyHeapPage(pid, hf.tupleDesc)
	if err != nil {
		return nil, err
	}
	if err := hp.AddTuple(t); err != nil {
		return nil, err
	}
	hf.pages = append(hf.pages, hp)
	return hp, nil
}

// DeleteTuple removes t from the in-memory page named by its record id and
// returns that page. The caller is responsible for writing it.
func (hf *HeapFile) DeleteTuple(t *tuple.Tuple) (*HeapPage, error) {
	if t.RecordID == nil {
		return nil, ErrNoRecordID.WithOperation("DeleteTuple", fileComponent)
	}

	pid := t.RecordID.PageID
	if pid.GetTableID() != hf.GetID() {
		return nil, ErrTableMismatch.WithDetailf("%s is not in table %d", pid, hf.GetID())
	}

	hf.mutex.RLock()
	defer hf.mutex.RUnlock()

	if int(pid.PageNo()) >= len(hf.pages) {
		return nil, ErrPageNotFound.WithDetailf("page %d of %d", pid.PageNo(), len(hf.pages))
	}

	hp := hf.pages[pid.PageNo()]
	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// GetAllTuples returns every tuple on every in-memory page, in page then slot order.
func (hf *HeapFile) GetAllTuples() []*tuple.Tuple {
	hf.mutex.RLock()
	defer hf.mutex.RUnlock()

	var all []*tuple.Tuple
	for _, hp := range hf.pages {
		all = append(all, hp.GetTuples()...)
	}
	return all
}

// AllocatePage reserves a new zero-filled page on disk and adds it to the
// in-memory page list. Concurrent callers receive distinct page numbers.
func (hf *HeapFile) AllocatePage() (primitives.PageNumber, error) {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	onDisk, err := hf.BaseFile.NumPages()
	if err != nil {
		return 0, err
	}

	var pageNo primitives.PageNumber
	if onDisk >= primitives.PageNumber(len(hf.pages)) {
		pageNo, err = hf.AllocateNewPage()
	} else {
		// AddTuple appended pages that were never written; reserve past them.
		pageNo = primitives.PageNumber(len(hf.pages))
		err = hf.WritePageData(pageNo, make([]byte, page.PageSize))
	}
	if err != nil {
		return 0, err
	}

	hf.growLocked(pageNo)
	return pageNo, nil
}

// growLocked extends the in-memory page list with empty pages so that
// pageNo is a valid index.
func (hf *HeapFile) growLocked(pageNo primitives.PageNumber) {
	for primitives.PageNumber(len(hf.pages)) <= pageNo {
		pid := page.NewPageDescriptor(hf.GetID(), primitives.PageNumber(len(hf.pages)))
		// Cannot fail: the schema was checked in NewHeapFile.
		hp, _ := NewEmptyHeapPage(pid, hf.tupleDesc)
		hf.pages = append(hf.pages, hp)
	}
}
