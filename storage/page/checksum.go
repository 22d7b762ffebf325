package page

import "github.com/cespare/xxhash/v2"

// Checksum returns the xxhash64 digest of the full page content.
// The checksum is not stored within the page: the page stays an opaque
// block, and the digest is used by offline tooling to report corruption
// across copies of the same heap file.
func Checksum(p PagePtr) uint64 {
	return xxhash.Sum64(p[:])
}
