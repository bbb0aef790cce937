// Package index defines the entry type and the operations shared by
// secondary indexes. The B+Tree in package btree is the implementation.
package index

import "storekit/pkg/types"

// Index is an ordered map from unique keys to record ids.
type Index interface {
	// Insert adds entry. Inserting a key that is already present is a no-op.
	Insert(entry IndexEntry) error

	// Delete removes the entry with entry's key.
	Delete(entry IndexEntry) error

	// Get returns the entry stored under key.
	Get(key types.Field) (IndexEntry, error)

	// Len returns the number of entries.
	Len() int
}
