package primitives

import "fmt"

// TableID identifies a table. It is derived from the absolute path of the
// table's backing heap file, so the same file always maps to the same id.
type TableID uint64

// PageNumber is the zero-based position of a page within its heap file.
type PageNumber uint64

// SlotID is the index of a record slot within a page.
type SlotID uint16

// TransactionID identifies a transaction. Ids are issued by
// transaction.NewTransactionID and are never reused within a process.
type TransactionID uint64

// NoTransaction marks a page that is not dirtied by any transaction.
const NoTransaction TransactionID = 0

// IsValid reports whether tid names a real transaction.
func (tid TransactionID) IsValid() bool {
	return tid != NoTransaction
}

func (tid TransactionID) String() string {
	if tid == NoTransaction {
		return "TID(none)"
	}
	return fmt.Sprintf("TID(%d)", uint64(tid))
}

func (t TableID) String() string {
	return fmt.Sprintf("TableID(%d)", uint64(t))
}
