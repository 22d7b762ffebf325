package buffer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/nozomidb/nozomidb/storage/disk"
	"github.com/nozomidb/nozomidb/storage/page"
)

// testingWriteRandomPage allocates a page on the manager's disk and fills
// it with random content, bypassing the pool
func testingWriteRandomPage(t *testing.T, m *Manager) (page.PageID, page.PagePtr) {
	t.Helper()
	pageID := m.dm.AllocatePage()
	p, err := page.TestingNewRandomPage()
	assert.Nil(t, err)
	err = m.dm.WritePageData(pageID, p)
	assert.Nil(t, err)
	return pageID, p
}

// spyDiskManager records the order of reads and writes
type spyDiskManager struct {
	DiskManager
	ops []string
}

func (s *spyDiskManager) ReadPageData(pageID page.PageID, p page.PagePtr) error {
	s.ops = append(s.ops, fmt.Sprintf("read %d", pageID))
	return s.DiskManager.ReadPageData(pageID, p)
}

func (s *spyDiskManager) WritePageData(pageID page.PageID, p page.PagePtr) error {
	s.ops = append(s.ops, fmt.Sprintf("write %d", pageID))
	return s.DiskManager.WritePageData(pageID, p)
}

// faultyDiskManager injects read failures
type faultyDiskManager struct {
	DiskManager
	failRead bool
}

func (f *faultyDiskManager) ReadPageData(pageID page.PageID, p page.PagePtr) error {
	if f.failRead {
		return errors.New("injected read failure")
	}
	return f.DiskManager.ReadPageData(pageID, p)
}

func TestFetchPageHit(t *testing.T) {
	m, err := TestingNewManager(2)
	assert.Nil(t, err)
	pageID, p := testingWriteRandomPage(t, m)

	buf, err := m.FetchPage(pageID)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(buf.Page()[:], p[:]))

	bufID := m.pageTable[pageID]
	assert.Equal(t, uint64(1), m.pool.frames[bufID].usageCount)

	// re-fetch: same buffer, bumped usage count, unchanged content
	buf2, err := m.FetchPage(pageID)
	assert.Nil(t, err)
	assert.Same(t, buf, buf2)
	assert.Equal(t, uint64(2), m.pool.frames[bufID].usageCount)
	assert.True(t, bytes.Equal(buf2.Page()[:], p[:]))
	assert.True(t, buf.pinned())

	m.ReleaseBuffer(buf)
	m.ReleaseBuffer(buf2)
	assert.False(t, buf.pinned())
}

func TestFetchPageMissFlushesDirty(t *testing.T) {
	m, err := TestingNewManager(1)
	assert.Nil(t, err)
	spy := &spyDiskManager{DiskManager: m.dm}
	m.dm = spy

	pid0, _ := testingWriteRandomPage(t, m)
	pid1, p1 := testingWriteRandomPage(t, m)

	buf, err := m.FetchPage(pid0)
	assert.Nil(t, err)
	updated, err := page.TestingNewRandomPage()
	assert.Nil(t, err)
	copy(buf.Page()[:], updated[:])
	buf.MarkDirty()
	m.ReleaseBuffer(buf)

	// fetching another page evicts the only frame: the dirty occupant
	// must be written back, exactly once, before the new page is loaded
	spy.ops = nil
	buf1, err := m.FetchPage(pid1)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(buf1.Page()[:], p1[:]))
	assert.Equal(t, []string{fmt.Sprintf("write %d", pid0), fmt.Sprintf("read %d", pid1)}, spy.ops)

	flushed := page.NewPagePtr()
	err = m.dm.ReadPageData(pid0, flushed)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(flushed[:], updated[:]))

	// page table follows the frame: pid1 resident, pid0 gone
	_, ok := m.pageTable[pid0]
	assert.False(t, ok)
	_, ok = m.pageTable[pid1]
	assert.True(t, ok)

	m.ReleaseBuffer(buf1)
}

func TestFetchPageNoFreeBuffer(t *testing.T) {
	m, err := TestingNewManager(1)
	assert.Nil(t, err)
	pid0, _ := testingWriteRandomPage(t, m)
	pid1, _ := testingWriteRandomPage(t, m)

	buf, err := m.FetchPage(pid0)
	assert.Nil(t, err)

	// the only frame is held, so the fetch must fail with the
	// recoverable pool-exhaustion condition, not an I/O error
	_, err = m.FetchPage(pid1)
	assert.ErrorIs(t, err, ErrNoFreeBuffer)

	// releasing the held buffer makes the fetch succeed
	m.ReleaseBuffer(buf)
	buf1, err := m.FetchPage(pid1)
	assert.Nil(t, err)
	m.ReleaseBuffer(buf1)
}

func TestFetchPageReadFailure(t *testing.T) {
	m, err := TestingNewManager(1)
	assert.Nil(t, err)
	faulty := &faultyDiskManager{DiskManager: m.dm}
	m.dm = faulty

	pid0, _ := testingWriteRandomPage(t, m)
	pid1, p1 := testingWriteRandomPage(t, m)

	buf, err := m.FetchPage(pid0)
	assert.Nil(t, err)
	m.ReleaseBuffer(buf)

	faulty.failRead = true
	_, err = m.FetchPage(pid1)
	assert.NotNil(t, err)
	assert.False(t, errors.Is(err, ErrNoFreeBuffer))

	// the failed load must not leave any stale page table entry:
	// neither the evicted page nor the requested one is mapped
	assert.Equal(t, 0, len(m.pageTable))

	// the reclaimed frame is usable again once reads recover
	faulty.failRead = false
	buf1, err := m.FetchPage(pid1)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(buf1.Page()[:], p1[:]))
	m.ReleaseBuffer(buf1)
}

func TestCreatePage(t *testing.T) {
	m, err := TestingNewManager(2)
	assert.Nil(t, err)

	buf, err := m.CreatePage()
	assert.Nil(t, err)
	assert.Equal(t, page.FirstPageID, buf.PageID())
	// a created page starts zero-filled and dirty so the first flush
	// materializes it on disk
	assert.True(t, buf.IsDirty())
	assert.True(t, bytes.Equal(buf.Page()[:], page.NewPagePtr()[:]))
	bufID, ok := m.pageTable[buf.PageID()]
	assert.True(t, ok)
	assert.Equal(t, uint64(1), m.pool.frames[bufID].usageCount)

	content, err := page.TestingNewRandomPage()
	assert.Nil(t, err)
	copy(buf.Page()[:], content[:])
	m.ReleaseBuffer(buf)

	err = m.FlushAll()
	assert.Nil(t, err)
	assert.False(t, buf.IsDirty())

	flushed := page.NewPagePtr()
	err = m.dm.ReadPageData(buf.PageID(), flushed)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(flushed[:], content[:]))
}

func TestFlushAll(t *testing.T) {
	m, err := TestingNewManager(4)
	assert.Nil(t, err)

	contents := make(map[page.PageID]page.PagePtr)
	for i := 0; i < 3; i++ {
		buf, err := m.CreatePage()
		assert.Nil(t, err)
		p, err := page.TestingNewRandomPage()
		assert.Nil(t, err)
		copy(buf.Page()[:], p[:])
		contents[buf.PageID()] = p
		m.ReleaseBuffer(buf)
	}

	err = m.FlushAll()
	assert.Nil(t, err)

	for pageID, p := range contents {
		flushed := page.NewPagePtr()
		err = m.dm.ReadPageData(pageID, flushed)
		assert.Nil(t, err)
		assert.True(t, bytes.Equal(flushed[:], p[:]))
	}

	// a second flush has nothing dirty left to write
	spy := &spyDiskManager{DiskManager: m.dm}
	m.dm = spy
	err = m.FlushAll()
	assert.Nil(t, err)
	assert.Empty(t, spy.ops)
}

func TestPageTableConsistency(t *testing.T) {
	m, err := TestingNewManager(2)
	assert.Nil(t, err)
	pid0, _ := testingWriteRandomPage(t, m)
	pid1, _ := testingWriteRandomPage(t, m)
	pid2, _ := testingWriteRandomPage(t, m)

	for _, pid := range []page.PageID{pid0, pid1, pid2} {
		buf, err := m.FetchPage(pid)
		assert.Nil(t, err)
		m.ReleaseBuffer(buf)
	}

	// two frames, three pages: exactly one page was evicted and dropped
	// from the table
	assert.Equal(t, 2, len(m.pageTable))
	_, ok := m.pageTable[pid0]
	assert.False(t, ok)

	// every entry points at the frame that actually holds its page, and
	// no two entries share a frame
	seen := make(map[BufferID]bool)
	for pid, bufID := range m.pageTable {
		assert.Equal(t, pid, m.pool.frames[bufID].buf.PageID())
		assert.False(t, seen[bufID])
		seen[bufID] = true
	}
}

func TestManagerWithFileDisk(t *testing.T) {
	dm, err := disk.TestingNewFileManager(t)
	assert.Nil(t, err)
	m := NewManager(dm, 2)

	buf, err := m.CreatePage()
	assert.Nil(t, err)
	p, err := page.TestingNewRandomPage()
	assert.Nil(t, err)
	copy(buf.Page()[:], p[:])
	pageID := buf.PageID()
	m.ReleaseBuffer(buf)

	err = m.FlushAll()
	assert.Nil(t, err)

	got, err := m.FetchPage(pageID)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(got.Page()[:], p[:]))
	m.ReleaseBuffer(got)
}
