package page

import (
	"storekit/pkg/primitives"
)

const (
	// PageSize is the size of each page in bytes (4KB)
	PageSize = 4096
)

// Page is a page resident in the buffer pool. Pages may be dirty, meaning
// they were modified by a transaction since they were last written to disk.
type Page interface {
	// GetID returns the ID of this page
	GetID() PageDescriptor

	// IsDirty returns the transaction that dirtied this page, or
	// primitives.NoTransaction when the page is clean.
	IsDirty() primitives.TransactionID

	// MarkDirty sets the dirty state of this page
	MarkDirty(dirty bool, tid primitives.TransactionID)

	// GetPageData returns the encoded page, exactly PageSize bytes.
	GetPageData() []byte

	// BeforeImageData returns a copy of the bytes captured by the last
	// SetBeforeImage call.
	BeforeImageData() []byte

	// SetBeforeImage captures the current encoded content as the before-image.
	// Called when a transaction that wrote this page commits.
	SetBeforeImage()
}
