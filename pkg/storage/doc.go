// Package storage is the root of storekit's disk-based storage engine.
//
// Data is organised into fixed-size 4 KB pages that are read and written as
// atomic units.
//
// # Sub-packages
//
//   - [storekit/pkg/storage/page]        – page ids, the page size and
//     positional block IO shared by every file type.
//   - [storekit/pkg/storage/heap]        – heap pages with a bitmap header and
//     fixed-width record slots, and heap files holding them.
//   - [storekit/pkg/storage/index/btree] – in-memory B+Tree over field keys
//     mapping to record ids.
//
// # Page layout
//
// A heap page starts with an occupancy bitmap of ceil(n/8) bytes, followed by
// n record slots of the table's record size, followed by zero padding up to
// PageSize. Bit i of the bitmap lives in byte i/8 at position i%8 (least
// significant bit first) and is set iff slot i holds a record.
package storage
