/*
The buffer pool is the fixed set of frames plus the clock hand.

nozomidb adopts clock sweep as the cache replacement policy, like postgres.
Clock sweep is an approximation of LRU: instead of a global timestamp it
keeps a per-frame usage count and a cursor moving circularly over the pool.
see https://github.com/postgres/postgres/blob/master/src/backend/storage/buffer/README#L155-L246

The pool performs no I/O and knows nothing about which page ids are
resident; that bookkeeping belongs to the buffer pool manager.
*/
package buffer

import "github.com/nozomidb/nozomidb/storage/page"

// Pool is an ordered, fixed-length sequence of frames.
// The capacity is fixed at construction and never resized; eviction only
// changes which page occupies a frame, never the frame set itself.
type Pool struct {
	frames []frame
	// nextVictimID is the frame the clock sweep inspects next.
	// invariant: always a valid index into frames.
	nextVictimID BufferID
}

// NewPool initializes the pool with size frames holding empty pages
func NewPool(size int) *Pool {
	frames := make([]frame, size)
	for i := range frames {
		frames[i] = frame{
			buf: &Buffer{
				pageID: page.InvalidPageID,
				page:   page.NewPagePtr(),
			},
		}
	}
	return &Pool{frames: frames}
}

// Size returns the pool capacity
func (p *Pool) Size() int {
	return len(p.frames)
}

// evict selects the next victim frame with the clock sweep and returns its
// id. The cursor is left pointing at the selected frame so the caller can
// overwrite it; it is not pre-advanced.
//
// Starting at the cursor and advancing circularly:
//   - a frame with usage count 0 is the victim.
//   - a frame still in use but unpinned gets a second chance: its usage
//     count is decremented and the sweep moves on.
//   - a pinned frame is counted; once every frame in the pool has been
//     observed pinned within one sweep, there is no victim and evict
//     reports false. The bound is exactly the pool size, single pass.
//
// The sweep makes monotonic progress: every unpinned observation
// decrements some usage count, and every pinned observation counts toward
// the saturation bound.
func (p *Pool) evict() (BufferID, bool) {
	consecutivePinned := 0
	for {
		f := &p.frames[p.nextVictimID]
		if f.usageCount == 0 {
			return p.nextVictimID, true
		}
		if f.buf.pinned() {
			consecutivePinned++
			if consecutivePinned >= p.Size() {
				return InvalidBufferID, false
			}
		} else {
			f.usageCount--
			consecutivePinned = 0
		}
		p.nextVictimID = p.incrementID(p.nextVictimID)
	}
}

// incrementID moves the clock hand ahead, treating the pool as a ring
func (p *Pool) incrementID(bufferID BufferID) BufferID {
	return BufferID((int(bufferID) + 1) % p.Size())
}
