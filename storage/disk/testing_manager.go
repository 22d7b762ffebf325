package disk

import (
	"path/filepath"
	"testing"
)

// TestingNewFileManager initializes disk manager with file storage.
// the heap file is created under t.TempDir() so it is removed after the test.
func TestingNewFileManager(t *testing.T) (*Manager, error) {
	return NewManager(filepath.Join(t.TempDir(), "heap.db"))
}

// TestingNewBufferManager initializes disk manager with buffer storage instead of file storage.
// This prevents unnecessary disk I/O.
func TestingNewBufferManager() (*Manager, error) {
	return newManager(newBufferStorage())
}
