/*
Disk manager deals with the heap file: the flat collection of fixed-size
pages the buffer manager caches.

The disk manager is responsible for
- allocating page ids: the file is append-only at this layer, so allocation
  is a monotonic counter derived from the file size at open. There is no
  free list of reusable pages.
- reading/writing one page's worth of bytes at the page's fixed offset.
- syncing the file when the caller needs a durability barrier.

Note that allocating a page id does not extend the file; the page
materializes on disk when its content is first written back.
*/
package disk

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nozomidb/nozomidb/storage/page"
)

// Manager manages the heap file
type Manager struct {
	// st is the underlying storage (file in production, byte slice in test)
	st storage
	// nextPageID is the page id handed out by the next AllocatePage call
	nextPageID page.PageID
}

// NewManager opens (or creates) the heap file and initializes the disk manager
func NewManager(path string) (*Manager, error) {
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "os.OpenFile failed")
	}
	m, err := newManager(fileStorage{fd})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"path":   path,
		"npages": uint64(m.nextPageID),
	}).Debug("opened heap file")
	return m, nil
}

// newManager initializes the disk manager on top of the given storage
// the next page id is derived from the storage size
func newManager(st storage) (*Manager, error) {
	size, err := st.Size()
	if err != nil {
		return nil, errors.Wrap(err, "st.Size failed")
	}
	return &Manager{
		st:         st,
		nextPageID: page.PageID(size / page.PageSize),
	}, nil
}

// AllocatePage allocates new page id
func (m *Manager) AllocatePage() page.PageID {
	pageID := m.nextPageID
	m.nextPageID++
	return pageID
}

// NPages returns how many pages have been allocated
func (m *Manager) NPages() page.PageID {
	return m.nextPageID
}

// ReadPageData reads the durable content of the page into p
func (m *Manager) ReadPageData(pageID page.PageID, p page.PagePtr) error {
	if _, err := m.st.Seek(page.CalculateFileOffset(pageID), io.SeekStart); err != nil {
		return errors.Wrap(err, "st.Seek failed")
	}
	if _, err := io.ReadFull(m.st, p[:]); err != nil {
		return errors.Wrap(err, "io.ReadFull failed")
	}
	return nil
}

// WritePageData persists p as the durable content of the page
func (m *Manager) WritePageData(pageID page.PageID, p page.PagePtr) error {
	if _, err := m.st.Seek(page.CalculateFileOffset(pageID), io.SeekStart); err != nil {
		return errors.Wrap(err, "st.Seek failed")
	}
	if _, err := m.st.Write(p[:]); err != nil {
		return errors.Wrap(err, "st.Write failed")
	}
	return nil
}

// Sync flushes the heap file to durable storage
func (m *Manager) Sync() error {
	if err := m.st.Sync(); err != nil {
		return errors.Wrap(err, "st.Sync failed")
	}
	return nil
}
