/*
Buffer pool manager mediates all access to disk pages through the
fixed-size pool of frames. Disk I/O is expensive, so pages are cached in
memory and the manager decides which pages stay resident, which get
evicted, and when dirty pages must be written back before their frame is
reused.

The manager owns the page table, the mapping from page id to frame id.
Invariants:
- for every entry (p -> b), frame b's buffer currently holds page p's
  content.
- the mapping is injective: no two page ids share a frame.
- the table is the single source of truth for "is this page resident".
A frame gains a table entry on every successful load and loses the evicted
page's entry exactly when the frame is repurposed.

Access rule for callers: FetchPage returns a pinned buffer, and the caller
must call ReleaseBuffer after it is done with it. Until then the frame is
never evicted. There is no explicit unpin API beyond the release; dropping
the last handle is what makes the frame evictable again.

The manager is single-threaded by design: all operations run to completion
without suspension, so calls observe a strict total order and no
interleaving hazards exist.
*/
package buffer

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nozomidb/nozomidb/storage/page"
)

// ErrNoFreeBuffer is returned when every frame is pinned during an
// eviction attempt. This is recoverable: release some held buffers and
// retry, or run with a larger pool.
var ErrNoFreeBuffer = errors.New("no free buffer available in the buffer pool")

// DiskManager is the disk collaborator the buffer pool manager drives.
// *disk.Manager satisfies it; tests substitute failing implementations.
type DiskManager interface {
	// ReadPageData fills p with the durable content of the page
	ReadPageData(pageID page.PageID, p page.PagePtr) error
	// WritePageData persists p as the durable content of the page
	WritePageData(pageID page.PageID, p page.PagePtr) error
	// AllocatePage allocates new page id
	AllocatePage() page.PageID
	// Sync flushes the heap file to durable storage
	Sync() error
}

// Manager is the buffer pool manager. It is the only entry point callers
// use to get at page content.
type Manager struct {
	dm   DiskManager
	pool *Pool
	// pageTable maps resident page ids to their frames
	pageTable map[page.PageID]BufferID
}

// NewManager initializes the buffer pool manager with poolSize frames
func NewManager(dm DiskManager, poolSize int) *Manager {
	return &Manager{
		dm:        dm,
		pool:      NewPool(poolSize),
		pageTable: make(map[page.PageID]BufferID),
	}
}

// FetchPage returns a pinned buffer holding the page's content.
// The caller must call ReleaseBuffer after completion of using the buffer.
//
// When the page is already resident, its usage count is bumped and the
// same buffer is returned. Otherwise a victim frame is selected with the
// clock sweep, its occupant is written back if dirty, and the requested
// page is read from disk into the frame.
func (m *Manager) FetchPage(pageID page.PageID) (*Buffer, error) {
	if bufID, ok := m.pageTable[pageID]; ok {
		f := &m.pool.frames[bufID]
		f.usageCount++
		f.buf.pin()
		return f.buf, nil
	}

	bufID, ok := m.pool.evict()
	if !ok {
		return nil, ErrNoFreeBuffer
	}
	f := &m.pool.frames[bufID]
	buf := f.buf
	evictPageID := buf.pageID
	if buf.dirty {
		logrus.WithFields(logrus.Fields{
			"pageID":   uint64(evictPageID),
			"bufferID": int(bufID),
		}).Debug("writing back dirty page before eviction")
		if err := m.dm.WritePageData(evictPageID, buf.page); err != nil {
			return nil, errors.Wrap(err, "dm.WritePageData failed")
		}
	}

	// the frame is about to be repurposed, so its old mapping must be
	// removed first: a failed load must not leave a stale entry pointing
	// at a frame that no longer holds the page
	delete(m.pageTable, evictPageID)
	buf.pageID = pageID
	buf.dirty = false
	if err := m.dm.ReadPageData(pageID, buf.page); err != nil {
		// the frame content is garbage now. leave it unmapped with no
		// usage credit so the next eviction reclaims it first.
		buf.pageID = page.InvalidPageID
		f.usageCount = 0
		return nil, errors.Wrap(err, "dm.ReadPageData failed")
	}
	f.usageCount = 1
	m.pageTable[pageID] = bufID
	buf.pin()
	return buf, nil
}

// CreatePage allocates a fresh page and returns a pinned buffer for it.
// The buffer content is zero-filled and marked dirty so the page
// materializes on disk at the first write-back; nothing is read from disk.
// The caller must call ReleaseBuffer after completion of using the buffer.
func (m *Manager) CreatePage() (*Buffer, error) {
	bufID, ok := m.pool.evict()
	if !ok {
		return nil, ErrNoFreeBuffer
	}
	f := &m.pool.frames[bufID]
	buf := f.buf
	evictPageID := buf.pageID
	if buf.dirty {
		logrus.WithFields(logrus.Fields{
			"pageID":   uint64(evictPageID),
			"bufferID": int(bufID),
		}).Debug("writing back dirty page before eviction")
		if err := m.dm.WritePageData(evictPageID, buf.page); err != nil {
			return nil, errors.Wrap(err, "dm.WritePageData failed")
		}
	}

	pageID := m.dm.AllocatePage()
	delete(m.pageTable, evictPageID)
	buf.pageID = pageID
	*buf.page = [page.PageSize]byte{}
	buf.dirty = true
	f.usageCount = 1
	m.pageTable[pageID] = bufID
	buf.pin()
	return buf, nil
}

// ReleaseBuffer drops one outside handle to the buffer.
// When FetchPage/CreatePage is called, it returns a pinned buffer, so the
// caller has to release it after it completes using the buffer.
func (m *Manager) ReleaseBuffer(buf *Buffer) {
	buf.unpin()
}

// FlushAll writes back every resident dirty page and syncs the heap file.
// Pinned buffers are flushed too; their content stays resident, only the
// dirty flag is cleared.
func (m *Manager) FlushAll() error {
	for pageID, bufID := range m.pageTable {
		buf := m.pool.frames[bufID].buf
		if !buf.dirty {
			continue
		}
		if err := m.dm.WritePageData(pageID, buf.page); err != nil {
			return errors.Wrap(err, "dm.WritePageData failed")
		}
		buf.dirty = false
	}
	if err := m.dm.Sync(); err != nil {
		return errors.Wrap(err, "dm.Sync failed")
	}
	return nil
}
