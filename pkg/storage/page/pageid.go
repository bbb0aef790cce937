package page

import (
	"fmt"

	"storekit/pkg/primitives"
)

// PageDescriptor identifies a page by its table and position within the
// table's file. It is a comparable value and is used directly as a map key.
type PageDescriptor struct {
	tableID primitives.TableID
	pageNum primitives.PageNumber
}

// NewPageDescriptor creates a new page descriptor
func NewPageDescriptor(tableID primitives.TableID, pageNum primitives.PageNumber) PageDescriptor {
	return PageDescriptor{
		tableID: tableID,
		pageNum: pageNum,
	}
}

// GetTableID returns the table ID
func (pd PageDescriptor) GetTableID() primitives.TableID {
	return pd.tableID
}

// PageNo returns the page number
func (pd PageDescriptor) PageNo() primitives.PageNumber {
	return pd.pageNum
}

// Equals checks if two page descriptors are equal
func (pd PageDescriptor) Equals(other PageDescriptor) bool {
	return pd == other
}

func (pd PageDescriptor) String() string {
	return fmt.Sprintf("PageDescriptor(table=%d, page=%d)", pd.tableID, pd.pageNum)
}
