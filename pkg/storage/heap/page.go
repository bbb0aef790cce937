package heap

import (
	"bytes"
	"io"
	"sync"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
	"storekit/pkg/tuple"
)

const pageComponent = "HeapPage"

var (
	ErrInvalidPageSize = dberror.New(dberror.CategoryFormat, "INVALID_PAGE_SIZE", "page data is not PageSize bytes")
	ErrRecordTooLarge  = dberror.New(dberror.CategoryFormat, "RECORD_TOO_LARGE", "record does not fit on a page")
	ErrSchemaMismatch  = dberror.New(dberror.CategoryCapacity, "SCHEMA_MISMATCH", "tuple schema does not match page schema")
	ErrPageFull        = dberror.New(dberror.CategoryCapacity, "PAGE_FULL", "no empty slot on page")
	ErrNoRecordID      = dberror.New(dberror.CategoryCapacity, "NO_RECORD_ID", "tuple has no record id")
	ErrWrongPage       = dberror.New(dberror.CategoryCapacity, "WRONG_PAGE", "tuple is not on this page")
	ErrSlotEmpty       = dberror.New(dberror.CategoryCapacity, "SLOT_EMPTY", "slot is not occupied")
	ErrSlotOutOfRange  = dberror.New(dberror.CategoryLookup, "SLOT_OUT_OF_RANGE", "slot index out of range")
)

// HeapPage represents a single page in a heap file and implements the page.Page interface.
//
// Page Layout:
//
//	[header bitmap: ceil(n/8) bytes][slot 0][slot 1]...[slot n-1][zero padding]
//
// n is the number of records of the schema's fixed size that fit alongside
// one header bit each: n = floor(PageSize*8 / (recordSize*8 + 1)). Bit i of
// the header lives in byte i/8 at position i%8 (LSB first) and is set iff
// slot i is occupied. The encoded page is always exactly PageSize bytes.
type HeapPage struct {
	pageID    page.PageDescriptor
	tupleDesc *tuple.TupleDescription
	header    []byte
	tuples    []*tuple.Tuple // indexed by slot, nil when empty
	numSlots  int
	dirtier   primitives.TransactionID
	oldData   []byte // before-image for rollback
	mutex     sync.RWMutex
}

// SlotsPerPage returns how many records of recordSize bytes fit on a page
// together with their header bits.
func SlotsPerPage(recordSize uint32) int {
	if recordSize == 0 {
		return 0
	}
	return (page.PageSize * 8) / int(recordSize*8+1)
}

// HeaderSize returns the size in bytes of the occupancy bitmap for numSlots slots.
func HeaderSize(numSlots int) int {
	return (numSlots + 7) / 8
}

// NewEmptyHeapPage creates a page with every slot free.
func NewEmptyHeapPage(pid page.PageDescriptor, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, page.PageSize), td)
}

// NewHeapPage decodes a page from its on-disk bytes.
//
// Parameters:
//   - pid: The PageDescriptor that uniquely identifies this page
//   - data: Exactly page.PageSize bytes
//   - td: The schema of every record on the page
//
// Returns:
//   - *HeapPage: The decoded page; its before-image equals data
//   - error: ErrInvalidPageSize for truncated or oversized input,
//     ErrRecordTooLarge when no record fits, or a field parse error
func NewHeapPage(pid page.PageDescriptor, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.PageSize {
		return nil, ErrInvalidPageSize.WithDetailf("expected %d, got %d", page.PageSize, len(data))
	}

	numSlots := SlotsPerPage(td.GetSize())
	if numSlots == 0 {
		return nil, ErrRecordTooLarge.WithDetailf("record size %d", td.GetSize())
	}

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		numSlots:  numSlots,
		header:    make([]byte, HeaderSize(numSlots)),
		tuples:    make([]*tuple.Tuple, numSlots),
		oldData:   make([]byte, page.PageSize),
	}

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	copy(hp.oldData, data)
	return hp, nil
}

// parsePageData reads the header and then every slot in order. Empty slots
// are skipped but still consume recordSize bytes.
func (hp *HeapPage) parsePageData(data []byte) error {
	copy(hp.header, data[:len(hp.header)])

	recordSize := int(hp.tupleDesc.GetSize())
	reader := bytes.NewReader(data[len(hp.header) : len(hp.header)+hp.numSlots*recordSize])

	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			if _, err := reader.Seek(int64(recordSize), io.SeekCurrent); err != nil {
				return dberror.Wrap(err, dberror.CategoryFormat, "TRUNCATED_PAGE", "NewHeapPage", pageComponent)
			}
			continue
		}

		t, err := tuple.ParseTuple(reader, hp.tupleDesc)
		if err != nil {
			return dberror.Wrap(err, dberror.CategoryFormat, "MALFORMED_SLOT", "NewHeapPage", pageComponent)
		}
		t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(i))
		hp.tuples[i] = t
	}
	return nil
}

// GetID returns the unique page identifier for this heap page.
func (hp *HeapPage) GetID() page.PageDescriptor {
	return hp.pageID
}

// GetTupleDesc returns the schema of records on this page.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.tupleDesc
}

// IsDirty returns the transaction that dirtied this page, or
// primitives.NoTransaction when the page is clean.
func (hp *HeapPage) IsDirty() primitives.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// MarkDirty marks this page as dirty or clean for a specific transaction.
func (hp *HeapPage) MarkDirty(dirty bool, tid primitives.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = primitives.NoTransaction
	}
}

// GetPageData encodes the page: header, then each slot's record bytes or
// zero fill, then zero padding up to page.PageSize.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.encode()
}

func (hp *HeapPage) encode() []byte {
	pageData := make([]byte, page.PageSize)
	copy(pageData, hp.header)

	recordSize := int(hp.tupleDesc.GetSize())
	for i, t := range hp.tuples {
		if t == nil {
			continue
		}
		offset := len(hp.header) + i*recordSize
		buf := bytes.NewBuffer(pageData[offset:offset])
		// Fields were type-checked on insert or decode, so this only fails on
		// an unset field, which AddTuple rejects.
		_ = t.Serialize(buf)
	}
	return pageData
}

// SetBeforeImage captures the current encoded page as the before-image.
// The buffer pool calls this when a transaction that wrote the page commits.
func (hp *HeapPage) SetBeforeImage() {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.oldData = hp.encode()
}

// BeforeImageData returns a copy of the before-image bytes.
func (hp *HeapPage) BeforeImageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return append([]byte(nil), hp.oldData...)
}

// GetBeforeImage decodes the before-image into a new, clean page.
func (hp *HeapPage) GetBeforeImage() (*HeapPage, error) {
	return NewHeapPage(hp.pageID, hp.BeforeImageData(), hp.tupleDesc)
}

// AddTuple stores t in the first free slot and sets t.RecordID.
//
// Errors:
//   - ErrSchemaMismatch when t's schema differs from the page's
//   - ErrPageFull when every slot is occupied
func (hp *HeapPage) AddTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return ErrSchemaMismatch.WithDetailf("page %s", hp.pageID)
	}
	if _, err := t.Bytes(); err != nil {
		return err
	}

	slot := hp.findFirstEmptySlot()
	if slot < 0 {
		return ErrPageFull.WithDetailf("page %s has %d slots", hp.pageID, hp.numSlots)
	}

	hp.setSlot(slot, true)
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(slot))
	return nil
}

// DeleteTuple frees the slot named by t.RecordID and clears t.RecordID.
//
// Errors:
//   - ErrNoRecordID when t was never placed on a page
//   - ErrWrongPage when t lives on a different page
//   - ErrSlotEmpty when the slot is already free
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	rid := t.RecordID
	if rid == nil {
		return ErrNoRecordID.WithOperation("DeleteTuple", pageComponent)
	}

	if rid.PageID != hp.pageID {
		return ErrWrongPage.WithDetailf("tuple on %s, page is %s", rid.PageID, hp.pageID)
	}

	slot := int(rid.TupleNum)
	if !hp.isSlotUsed(slot) {
		return ErrSlotEmpty.WithDetailf("slot %d on %s", slot, hp.pageID)
	}

	hp.setSlot(slot, false)
	hp.tuples[slot] = nil
	t.RecordID = nil
	return nil
}

// NumSlots returns the number of record slots on the page.
func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// NumEmptySlots returns the count of unoccupied slots.
func (hp *HeapPage) NumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	empty := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// HasEmptySlot reports whether any header bit is unset.
func (hp *HeapPage) HasEmptySlot() bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.findFirstEmptySlot() >= 0
}

// IsSlotUsed reports whether slot i holds a record. Out of range slots are unused.
func (hp *HeapPage) IsSlotUsed(i int) bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.isSlotUsed(i)
}

// GetTuples returns all stored tuples in slot order.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	tuples := make([]*tuple.Tuple, 0, hp.numSlots)
	for _, t := range hp.tuples {
		if t != nil {
			tuples = append(tuples, t)
		}
	}
	return tuples
}

// GetTupleAt returns the tuple at slot idx, or nil if the slot is empty.
func (hp *HeapPage) GetTupleAt(idx int) (*tuple.Tuple, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if idx < 0 || idx >= hp.numSlots {
		return nil, ErrSlotOutOfRange.WithDetailf("slot %d not in [0, %d)", idx, hp.numSlots)
	}
	return hp.tuples[idx], nil
}

func (hp *HeapPage) isSlotUsed(i int) bool {
	if i < 0 || i >= hp.numSlots {
		return false
	}
	return hp.header[i/8]&(1<<(i%8)) != 0
}

func (hp *HeapPage) setSlot(i int, used bool) {
	if used {
		hp.header[i/8] |= 1 << (i % 8)
	} else {
		hp.header[i/8] &^= 1 << (i % 8)
	}
}

func (hp *HeapPage) findFirstEmptySlot() int {
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			return i
		}
	}
	return -1
}
