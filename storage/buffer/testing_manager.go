package buffer

import (
	"github.com/pkg/errors"

	"github.com/nozomidb/nozomidb/storage/disk"
)

// TestingNewManager initializes the buffer pool manager over an in-memory
// disk manager so tests perform no real disk I/O
func TestingNewManager(poolSize int) (*Manager, error) {
	dm, err := disk.TestingNewBufferManager()
	if err != nil {
		return nil, errors.Wrap(err, "disk.TestingNewBufferManager failed")
	}
	return NewManager(dm, poolSize), nil
}
