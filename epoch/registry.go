package epoch

import (
	"sync/atomic"

	"github.com/hideo55/go-popcount"
)

const (
	registryWords = 4                  // 4 x 64 bits
	registrySize  = registryWords * 64 // slots per segment

	pinnedBit uint64 = 1 // participant state: epoch<<1 | pinned
)

// segment is one block of participant slots. Segments are chained and never
// removed, so slot indices stay valid for the life of the registry.
type segment struct {
	bitmap [registryWords]atomic.Uint64
	slots  [registrySize]atomic.Uint64
	next   atomic.Pointer[segment]
}

// registry keeps track of pinned participants.
//
// A participant claims a slot by setting its bit in a segment bitmap and then
// publishes the epoch it observed into the slot. When every slot of every
// segment is taken a new segment is appended with a compare-and-swap, so a
// claim never waits for somebody else to release.
type registry struct {
	head segment
}

// acquire claims a free slot and returns its index across the chain.
func (r *registry) acquire() int {
	base := 0

	for seg := &r.head; ; seg = seg.grow() {
		if bit, ok := seg.claim(); ok {
			return base + bit
		}

		base += registrySize
	}
}

// claim takes the lowest free slot of the segment.
func (s *segment) claim() (int, bool) {
	for w := range s.bitmap {
		for {
			bmp := s.bitmap[w].Load()
			free := ^bmp

			if free == 0 {
				break // the word is full - try the next one
			}

			// index of the lowest free bit: 0000 1000 -> 0000 0111 -> 3
			bit := popcount.Count((free & -free) - 1)

			if s.bitmap[w].CompareAndSwap(bmp, bmp|(uint64(1)<<bit)) {
				return w*64 + int(bit), true
			}
		}
	}

	return 0, false
}

// grow returns the next segment, appending it if there is none yet.
func (s *segment) grow() *segment {
	if next := s.next.Load(); next != nil {
		return next
	}

	if s.next.CompareAndSwap(nil, &segment{}) {
		return s.next.Load()
	}

	return s.next.Load() // lost the race - use the winner's segment
}

// segment returns the segment holding the slot at idx and the local index.
func (r *registry) segment(idx int) (*segment, int) {
	seg := &r.head

	for ; idx >= registrySize; idx -= registrySize {
		seg = seg.next.Load()
	}

	return seg, idx
}

// pin publishes the epoch observed by the participant at idx.
func (r *registry) pin(idx int, epoch uint64) {
	seg, i := r.segment(idx)
	seg.slots[i].Store(epoch<<1 | pinnedBit)
}

// release unpins the participant and frees its slot.
func (r *registry) release(idx int) {
	seg, i := r.segment(idx)
	seg.slots[i].Store(0)

	var (
		w    = i >> 6
		mask = uint64(1) << (i & 0x3F)
	)

	for {
		bmp := seg.bitmap[w].Load()
		if seg.bitmap[w].CompareAndSwap(bmp, bmp&^mask) {
			return
		}
	}
}

// segments returns the number of segments in the chain.
func (r *registry) segments() int {
	n := 0

	for seg := &r.head; seg != nil; seg = seg.next.Load() {
		n++
	}

	return n
}

// active returns the number of claimed slots.
func (r *registry) active() int {
	var cnt uint64

	for seg := &r.head; seg != nil; seg = seg.next.Load() {
		for w := range seg.bitmap {
			cnt += popcount.Count(seg.bitmap[w].Load())
		}
	}

	return int(cnt)
}

// synced reports whether every pinned participant has observed the epoch.
func (r *registry) synced(epoch uint64) bool {
	for seg := &r.head; seg != nil; seg = seg.next.Load() {
		for w := range seg.bitmap {
			bmp := seg.bitmap[w].Load()

			for bmp != 0 {
				var (
					bit   = popcount.Count((bmp & -bmp) - 1)
					state = seg.slots[w*64+int(bit)].Load()
				)

				if state&pinnedBit != 0 && state>>1 != epoch {
					return false
				}

				bmp &= bmp - 1 // drop the lowest bit
			}
		}
	}

	return true
}
