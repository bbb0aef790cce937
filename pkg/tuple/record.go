package tuple

import (
	"fmt"

	"storekit/pkg/primitives"
	"storekit/pkg/storage/page"
)

// RecordID points at a tuple: the page holding it and the slot within that page.
type RecordID struct {
	PageID   page.PageDescriptor
	TupleNum primitives.SlotID
}

// NewRecordID creates a new RecordID
func NewRecordID(pageID page.PageDescriptor, tupleNum primitives.SlotID) *RecordID {
	return &RecordID{
		PageID:   pageID,
		TupleNum: tupleNum,
	}
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if rid == nil || other == nil {
		return rid == other
	}
	return rid.PageID == other.PageID && rid.TupleNum == other.TupleNum
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, tuple=%d)", rid.PageID.String(), rid.TupleNum)
}
