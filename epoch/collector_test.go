package epoch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_PinUnpin(t *testing.T) {
	t.Parallel()

	c := NewCollector()

	assert.Zero(t, c.Participants())

	g1 := c.Pin()
	g2 := c.Pin()

	assert.Equal(t, 2, c.Participants())
	assert.NotEqual(t, g1.slot, g2.slot)
	assert.Same(t, c, g1.Collector())

	g1.Unpin()
	g1.Unpin() // no-op

	assert.Equal(t, 1, c.Participants())

	g2.Unpin()

	assert.Zero(t, c.Participants())
}

func TestCollector_GracePeriod(t *testing.T) {
	t.Parallel()

	var (
		c   = NewCollector()
		ran atomic.Bool
	)

	reader := c.Pin() // a reader that might still see the retired value

	writer := c.Pin()
	writer.Defer(func() { ran.Store(true) })
	writer.Unpin()

	require.Equal(t, 1, c.Pending())

	for i := 0; i < 10; i++ {
		c.Collect()
		require.False(t, ran.Load(), "destructor ran while an older guard is pinned")
	}

	assert.LessOrEqual(t, c.Epoch(), reader.Epoch()+1)

	reader.Unpin()

	for i := 0; i < 3 && !ran.Load(); i++ {
		c.Collect()
	}

	assert.True(t, ran.Load())
	assert.Zero(t, c.Pending())
	assert.Equal(t, uint64(1), c.Reclaimed())
}

func TestCollector_NewGuardsDoNotBlock(t *testing.T) {
	t.Parallel()

	var (
		c   = NewCollector()
		ran atomic.Bool
	)

	g := c.Pin()
	g.Defer(func() { ran.Store(true) })
	g.Unpin()

	// guards pinned after Defer keep up with the epoch and never block it
	for i := 0; i < 5 && !ran.Load(); i++ {
		late := c.Pin()
		late.Flush()
		late.Unpin()
	}

	c.Collect()

	assert.True(t, ran.Load())
}

func TestCollector_AutoCollect(t *testing.T) {
	t.Parallel()

	var (
		c     = NewCollector()
		count atomic.Int64
	)

	for i := 0; i < 10*collectEvery; i++ {
		g := c.Pin()
		g.Defer(func() { count.Add(1) })
		g.Unpin()
	}

	assert.Positive(t, count.Load())
	assert.Equal(t, uint64(count.Load()), c.Reclaimed())
}

func TestCollector_Concurrent(t *testing.T) {
	t.Parallel()

	const (
		workers = 32
		rounds  = 500
	)

	var (
		c    = NewCollector()
		wg   sync.WaitGroup
		cell = NewAtomic[int](NewOwned(0))
		live atomic.Int64 // values unlinked but not reclaimed yet
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			for i := 0; i < rounds; i++ {
				g := c.Pin()

				old := cell.Swap(NewOwned(w*rounds+i), g)
				live.Add(1)

				g.Defer(func() {
					_ = *old.Deref() // must still be readable
					live.Add(-1)
				})

				g.Unpin()
			}
		}(w)
	}

	wg.Wait()

	for i := 0; i < 3; i++ {
		c.Collect()
	}

	assert.Zero(t, c.Participants())
	assert.Zero(t, c.Pending())
	assert.Zero(t, live.Load())
}

func TestRegistry_AcquireRelease(t *testing.T) {
	t.Parallel()

	var r registry

	idx := make([]int, 0, registrySize)
	for i := 0; i < registrySize; i++ {
		idx = append(idx, r.acquire())
	}

	assert.Equal(t, registrySize, r.active())

	for i, j := range idx {
		assert.Equal(t, i, j) // lowest free bit first
	}

	r.release(70)
	r.release(3)

	assert.Equal(t, registrySize-2, r.active())
	assert.Equal(t, 3, r.acquire())
	assert.Equal(t, 70, r.acquire())
}

func TestRegistry_Synced(t *testing.T) {
	t.Parallel()

	var r registry

	a := r.acquire()
	b := r.acquire()

	r.pin(a, 5)
	r.pin(b, 5)

	assert.True(t, r.synced(5))
	assert.False(t, r.synced(6))

	r.release(a)
	r.pin(b, 6)

	assert.True(t, r.synced(6))

	r.release(b)

	assert.True(t, r.synced(100))
	assert.Zero(t, r.active())
}

func TestRegistry_Grow(t *testing.T) {
	t.Parallel()

	var (
		r     registry
		total = 2*registrySize + 10
	)

	assert.Equal(t, 1, r.segments())

	for i := 0; i < total; i++ {
		require.Equal(t, i, r.acquire())
	}

	assert.Equal(t, 3, r.segments())
	assert.Equal(t, total, r.active())

	last := total - 1
	r.pin(last, 9)
	r.pin(3, 9)

	assert.False(t, r.synced(8))
	assert.True(t, r.synced(9))

	// a slot freed in the first segment is reused before the chain grows
	r.release(registrySize + 5)
	r.release(last)

	assert.Equal(t, registrySize+5, r.acquire())
	assert.Equal(t, last, r.acquire())
	assert.Equal(t, 3, r.segments())
}

func TestCollector_ManyGuards(t *testing.T) {
	t.Parallel()

	const total = 3*registrySize + 1

	var (
		c      = NewCollector()
		guards = make(chan *Guard, total)
		wg     sync.WaitGroup
	)

	// every guard stays pinned while the others pin
	for i := 0; i < total; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			guards <- c.Pin()
		}()
	}

	wg.Wait()
	close(guards)

	assert.Equal(t, total, c.Participants())

	slots := map[int]struct{}{}
	var pinned []*Guard

	for g := range guards {
		slots[g.slot] = struct{}{}
		pinned = append(pinned, g)
	}

	assert.Len(t, slots, total)

	epoch := c.Epoch()
	pinned[0].Defer(func() {})

	// nobody moves past the pinned epoch plus one
	for i := 0; i < 3; i++ {
		c.Collect()
	}

	assert.LessOrEqual(t, c.Epoch(), epoch+1)
	assert.Equal(t, 1, c.Pending())

	for _, g := range pinned {
		g.Unpin()
	}

	for i := 0; i < 3; i++ {
		c.Collect()
	}

	assert.Zero(t, c.Participants())
	assert.Zero(t, c.Pending())
}
