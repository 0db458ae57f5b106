package epoch

import (
	"sync"
	"sync/atomic"
)

// collectEvery is how many unpins pass between two automatic collections.
const collectEvery = 64

type deferred struct {
	epoch uint64
	fn    func()
}

// Collector owns a global epoch, the registry of pinned guards and the
// destructors waiting for their grace period.
type Collector struct {
	epoch    atomic.Uint64
	registry registry

	mu      sync.Mutex
	garbage []deferred

	pending   atomic.Int64
	reclaimed atomic.Uint64
	unpins    atomic.Uint64
}

var defaultCollector = NewCollector()

func NewCollector() *Collector {
	return &Collector{}
}

// Default returns the process-wide collector.
func Default() *Collector {
	return defaultCollector
}

// Pin pins a guard on the process-wide collector.
func Pin() *Guard {
	return defaultCollector.Pin()
}

// Pin registers the calling goroutine as a participant of the current epoch.
func (c *Collector) Pin() *Guard {
	idx := c.registry.acquire()

	// re-publish until the epoch we announced is still the global one
	epoch := c.epoch.Load()

	for {
		c.registry.pin(idx, epoch)

		cur := c.epoch.Load()
		if cur == epoch {
			break
		}

		epoch = cur
	}

	return &Guard{c: c, slot: idx, epoch: epoch}
}

// Epoch returns the current global epoch.
func (c *Collector) Epoch() uint64 {
	return c.epoch.Load()
}

// Participants returns the number of currently pinned guards.
func (c *Collector) Participants() int {
	return c.registry.active()
}

// Pending returns the number of destructors still waiting for a grace period.
func (c *Collector) Pending() int {
	return int(c.pending.Load())
}

// Reclaimed returns the number of destructors that have run.
func (c *Collector) Reclaimed() uint64 {
	return c.reclaimed.Load()
}

func (c *Collector) retire(fn func()) {
	c.mu.Lock()
	c.garbage = append(c.garbage, deferred{epoch: c.epoch.Load(), fn: fn})
	c.pending.Add(1)
	c.mu.Unlock()
}

// tryAdvance moves the global epoch forward if all pinned participants have
// observed it. It returns the epoch after the attempt.
func (c *Collector) tryAdvance() uint64 {
	epoch := c.epoch.Load()

	if c.registry.synced(epoch) {
		c.epoch.CompareAndSwap(epoch, epoch+1)
	}

	return c.epoch.Load()
}

// Collect advances the epoch when possible and runs every destructor whose
// grace period has elapsed. It returns the number of destructors run.
func (c *Collector) Collect() int {
	epoch := c.tryAdvance()

	var ready []func()

	c.mu.Lock()
	keep := c.garbage[:0]

	for _, d := range c.garbage {
		if d.epoch+2 <= epoch {
			ready = append(ready, d.fn)
		} else {
			keep = append(keep, d)
		}
	}

	for i := len(keep); i < len(c.garbage); i++ {
		c.garbage[i] = deferred{} // let the GC have the closures
	}

	c.garbage = keep
	c.mu.Unlock()

	for _, fn := range ready {
		fn()
	}

	n := len(ready)
	if n > 0 {
		c.pending.Add(int64(-n))
		c.reclaimed.Add(uint64(n))
	}

	return n
}

func (c *Collector) unpinned() {
	if c.unpins.Add(1)%collectEvery == 0 && c.pending.Load() > 0 {
		c.Collect()
	}
}
