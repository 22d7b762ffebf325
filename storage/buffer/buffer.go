package buffer

import (
	"github.com/nozomidb/nozomidb/storage/page"
)

// BufferID is the index of a frame within the buffer pool.
// It is purely an in-memory addressing handle and is never persisted.
type BufferID int

const (
	// FirstBufferID is the first frame of the pool
	FirstBufferID BufferID = 0
	// InvalidBufferID is returned when no frame can be selected
	InvalidBufferID BufferID = -1
)

// Buffer is one cached page: the on-disk page id currently occupying the
// memory, the raw content, and the dirty flag.
//
// A Buffer is owned by exactly one frame, but any number of callers outside
// the pool may hold a handle to it between FetchPage and ReleaseBuffer.
// The live-handle count is tracked explicitly: while it is above zero the
// frame is pinned and must not be evicted, and as soon as it drops to zero
// the frame becomes a legal eviction target, so a caller must never use a
// handle it has already released.
type Buffer struct {
	// pageID is which on-disk page currently occupies this memory
	pageID page.PageID
	// page is the raw content, exactly one disk block
	page page.PagePtr
	// dirty is set when the content diverges from the on-disk copy
	// cleared after a successful flush or a fresh load
	dirty bool
	// refs counts the live outside handles. refs > 0 means pinned.
	refs int
}

// PageID returns the id of the page occupying this buffer
func (b *Buffer) PageID() page.PageID {
	return b.pageID
}

// Page returns the raw page content.
// A caller mutating the content through this pointer must call MarkDirty,
// otherwise the change is lost on eviction.
func (b *Buffer) Page() page.PagePtr {
	return b.page
}

// MarkDirty turns on the dirty flag of the buffer.
// The caller contract: call this after mutating the page content.
func (b *Buffer) MarkDirty() {
	b.dirty = true
}

// IsDirty reports whether the buffer content diverges from the on-disk copy
func (b *Buffer) IsDirty() bool {
	return b.dirty
}

// pin records one more outside handle
func (b *Buffer) pin() {
	b.refs++
}

// unpin drops one outside handle
func (b *Buffer) unpin() {
	if b.refs > 0 {
		b.refs--
	}
}

// pinned reports whether some caller outside the pool still holds a handle
func (b *Buffer) pinned() bool {
	return b.refs > 0
}

// frame pairs the buffer with the usage count the clock-sweep inspects.
// usageCount is not a pin counter: it is the "recently used" credit that
// the sweep decrements to give the frame a second chance.
type frame struct {
	usageCount uint64
	buf        *Buffer
}
