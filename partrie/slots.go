package partrie

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/aglyzov/partrie/epoch"
)

// tagFrozen marks a cell of an array that is being migrated to a bigger one.
// A frozen cell never changes again.
const tagFrozen uintptr = 1

// cells is one generation of a slots array.
type cells[T any] struct {
	items []epoch.Atomic[node[T]]
	next  epoch.Atomic[cells[T]] // successor, allocated once by the first grower
}

func newCells[T any](capacity int) *cells[T] {
	return &cells[T]{items: make([]epoch.Atomic[node[T]], capacity)}
}

// slots is a growable array of node pointers.
//
// Cells are claimed strictly by compare-and-swap from null and never retracted,
// so a value found in a cell is final. When no free cell is left, every cell of
// the array is frozen and copied (same index) into an array of double capacity
// which then replaces the old one. Claimers that hit a frozen cell help the
// migration and retry on the successor.
type slots[T any] struct {
	cur   epoch.Atomic[cells[T]]
	count atomic.Int64
}

func (s *slots[T]) init(capacity int) {
	s.cur.Store(epoch.OwnedFrom(newCells[T](capacity)))
}

// load returns the current array, installing the first one lazily.
func (s *slots[T]) load(capacity int, g *epoch.Guard) epoch.Shared[cells[T]] {
	cur := s.cur.Load(g)
	if !cur.IsNull() {
		return cur
	}

	cur, _ = s.cur.CompareAndSwap(cur, epoch.OwnedFrom(newCells[T](capacity)), g)

	return cur
}

func (s *slots[T]) len() int {
	return int(s.count.Load())
}

func (s *slots[T]) capacity(g *epoch.Guard) int {
	if cur := s.cur.Load(g); !cur.IsNull() {
		return len(cur.Deref().items)
	}

	return 0
}

// find returns the cell holding a node with the given value.
func (s *slots[T]) find(val T, eq func(a, b T) bool, g *epoch.Guard) *epoch.Atomic[node[T]] {
	cur := s.cur.Load(g)
	if cur.IsNull() {
		return nil
	}

	items := cur.Deref().items

	for i := range items {
		n := items[i].Load(g)
		if n.IsNull() {
			return nil // cells are filled in order: nothing beyond
		}

		if eq(n.Deref().val, val) {
			return &items[i]
		}
	}

	return nil
}

// position is like find but returns an index (or -1).
func (s *slots[T]) position(val T, eq func(a, b T) bool, g *epoch.Guard) int {
	cur := s.cur.Load(g)
	if cur.IsNull() {
		return -1
	}

	items := cur.Deref().items

	for i := range items {
		n := items[i].Load(g)
		if n.IsNull() {
			break
		}

		if eq(n.Deref().val, val) {
			return i
		}
	}

	return -1
}

// occupied returns every non-empty cell in array order.
func (s *slots[T]) occupied(g *epoch.Guard) []*epoch.Atomic[node[T]] {
	cur := s.cur.Load(g)
	if cur.IsNull() {
		return nil
	}

	var (
		items = cur.Deref().items
		res   = make([]*epoch.Atomic[node[T]], 0, s.len())
	)

	for i := range items {
		if items[i].Load(g).IsNull() {
			continue
		}

		res = append(res, &items[i])
	}

	return res
}

// nodes returns the nodes of every non-empty cell in array order.
func (s *slots[T]) nodes(g *epoch.Guard) []*node[T] {
	cur := s.cur.Load(g)
	if cur.IsNull() {
		return nil
	}

	var (
		items = cur.Deref().items
		res   = make([]*node[T], 0, s.len())
	)

	for i := range items {
		if n := items[i].Load(g); !n.IsNull() {
			res = append(res, n.Deref())
		}
	}

	return res
}

// insert returns the node holding val, publishing mk() into the first free
// cell when there is none. created reports whether this call published it.
func (s *slots[T]) insert(val T, mk func() *node[T], level growthLevel, t *rawTrie[T], g *epoch.Guard) (n *node[T], created bool) {
	var fresh *node[T]

	for {
		cur := s.load(t.capacityOf(level), g)
		items := cur.Deref().items

	scan:
		for i := range items {
			cell := &items[i]
			p := cell.Load(g)

			for {
				if p.Tag()&tagFrozen != 0 {
					break scan // the array is being migrated
				}

				if !p.IsNull() {
					if t.eq(p.Deref().val, val) {
						return p.Deref(), false
					}

					continue scan
				}

				if fresh == nil {
					fresh = mk()
				}

				actual, ok := cell.CompareAndSwap(p, epoch.OwnedFrom(fresh), g)
				if ok {
					s.count.Add(1)
					return fresh, true
				}

				p = actual // lost the race - re-examine the same cell
			}
		}

		// no free cell left (or a frozen one found)
		t.grow(s, cur, level, g)
	}
}

// migrate moves the content of old into its successor and installs it.
// It can be run by any number of goroutines at the same time.
// It reports whether this call installed the successor.
func (s *slots[T]) migrate(old epoch.Shared[cells[T]], g *epoch.Guard) (epoch.Shared[cells[T]], bool) {
	oc := old.Deref()

	next := oc.next.Load(g)
	if next.IsNull() {
		next, _ = oc.next.CompareAndSwap(next, epoch.OwnedFrom(newCells[T](2*len(oc.items))), g)
	}

	nc := next.Deref()

	for i := range oc.items {
		prev := oc.items[i].FetchTag(tagFrozen, g)

		if !prev.IsNull() {
			// a no-op if another helper has already copied it
			nc.items[i].CompareAndSwap(epoch.Null[node[T]](), prev.WithTag(0), g)
		}
	}

	_, installed := s.cur.CompareAndSwap(old, next, g)

	return next, installed
}

// retire releases the old array after a grace period.
func (s *slots[T]) retire(old epoch.Shared[cells[T]], t *rawTrie[T], g *epoch.Guard) {
	oc := old.Deref()

	g.Defer(func() {
		for i := range oc.items {
			oc.items[i].Store(epoch.Null[node[T]]())
		}

		oc.next.Store(epoch.Null[cells[T]]())

		t.retired.Add(1)
		t.obs.ObserveRetire()
		t.log.WithField("capacity", len(oc.items)).Trace("array reclaimed")
	})
}

func (t *rawTrie[T]) grow(s *slots[T], old epoch.Shared[cells[T]], level growthLevel, g *epoch.Guard) {
	if level == rootLevel {
		t.growRoot(old, g)
		return
	}

	next, installed := s.migrate(old, g)
	if !installed {
		return
	}

	size := len(next.Deref().items)

	t.nodeGrowths.Add(1)
	t.obs.ObserveGrowth(string(nodeLevel), size)
	t.log.WithFields(logrus.Fields{"level": nodeLevel, "capacity": size}).Debug("children grown")

	s.retire(old, t, g)
}
