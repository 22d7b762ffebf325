/*
Page is the unit of disk I/O in nozomidb.
The disk manager organizes the heap file as a collection of fixed-size pages,
and the buffer manager caches them one per frame.

The page here is an opaque byte block. Slotted-page layout (header/slots/items)
belongs to the access methods built on top of the buffer manager, not to this
layer, so nothing in this package interprets the content.
*/
package page

import "math"

// PageSize is the byte size of page.
// this must match the OS page size so a single page write is as close to
// atomic as the platform allows
const PageSize = 4096

// PageID is the unique identifier given to each page, which is called
// blockNumber in postgres
// see https://github.com/postgres/postgres/blob/d63d957e330c611f7a8c0ed02e4407f40f975026/src/include/storage/block.h#L17-L31
type PageID uint64

const (
	// FirstPageID is the first page id in the heap file
	FirstPageID PageID = 0
	// InvalidPageID is invalid page id
	// a frame whose buffer holds InvalidPageID has never been loaded
	InvalidPageID PageID = math.MaxUint64
)

// PagePtr is pointer to page
// nozomidb defines page as pointer explicitly
// because page should not be passed by value (for space-efficiency)
type PagePtr *[PageSize]byte

// NewPagePtr returns 0-filled page pointer
func NewPagePtr() PagePtr {
	p := &[PageSize]byte{}
	return PagePtr(p)
}

// CalculateFileOffset calculates the page's offset within the heap file
// the page size is fixed so that it is easy to calculate the offset
func CalculateFileOffset(pageID PageID) int64 {
	return int64(pageID) * PageSize
}
