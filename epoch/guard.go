package epoch

import "sync/atomic"

// Guard proves that its owner is pinned to an epoch. Pointers loaded with a
// guard stay valid until the guard is unpinned.
//
// A Guard is meant to be used by a single goroutine.
type Guard struct {
	c     *Collector
	slot  int
	epoch uint64
	done  atomic.Bool
}

// Epoch returns the epoch the guard was pinned at.
func (g *Guard) Epoch() uint64 {
	return g.epoch
}

// Collector returns the collector the guard belongs to.
func (g *Guard) Collector() *Collector {
	return g.c
}

// Defer schedules fn to run once no guard pinned before this call can still
// be pinned.
func (g *Guard) Defer(fn func()) {
	g.c.retire(fn)
}

// Flush tries to advance the epoch and run the expired destructors.
func (g *Guard) Flush() int {
	return g.c.Collect()
}

// Unpin releases the guard. It is safe to call more than once.
func (g *Guard) Unpin() {
	if !g.done.CompareAndSwap(false, true) {
		return
	}

	g.c.registry.release(g.slot)
	g.c.unpinned()
}
