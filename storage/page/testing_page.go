package page

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// TestingNewRandomPage returns a page filled with random bytes
func TestingNewRandomPage() (PagePtr, error) {
	p := NewPagePtr()
	if _, err := rand.Read(p[:]); err != nil {
		return nil, errors.Wrap(err, "rand.Read failed")
	}
	return p, nil
}
