package index

import (
	"fmt"

	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

// IndexEntry maps an index key to a tuple location in a heap file.
type IndexEntry struct {
	Key types.Field
	RID *tuple.RecordID
}

// NewIndexEntry creates an entry for key pointing at rid.
func NewIndexEntry(key types.Field, rid *tuple.RecordID) IndexEntry {
	return IndexEntry{Key: key, RID: rid}
}

// Equals reports whether both key and record id match.
func (e IndexEntry) Equals(other IndexEntry) bool {
	if e.Key == nil || other.Key == nil {
		return e.Key == nil && other.Key == nil && e.RID.Equals(other.RID)
	}
	return e.Key.Equals(other.Key) && e.RID.Equals(other.RID)
}

func (e IndexEntry) String() string {
	rid := "<nil>"
	if e.RID != nil {
		rid = e.RID.String()
	}
	return fmt.Sprintf("%v -> %s", e.Key, rid)
}
