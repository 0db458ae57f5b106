package partrie

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/aglyzov/partrie/epoch"
)

// rawTrie holds the root array and implements insertion and search.
// Every method expects the caller to be pinned.
type rawTrie[T any] struct {
	root     slots[T]
	resizing atomic.Bool // a root resize is in flight
	mu       sync.Mutex  // serializes the root swap-in

	eq      func(a, b T) bool
	rootCap int
	nodeCap int

	log logrus.FieldLogger
	obs Observer

	nodes       atomic.Int64
	rootGrowths atomic.Int64
	nodeGrowths atomic.Int64
	retired     atomic.Int64
}

func newRawTrie[T any](eq func(a, b T) bool, cfg *config) *rawTrie[T] {
	t := &rawTrie[T]{
		eq:      eq,
		rootCap: cfg.rootCap,
		nodeCap: cfg.nodeCap,
		log:     cfg.log,
		obs:     cfg.obs,
	}

	t.root.init(cfg.rootCap)

	return t
}

func (t *rawTrie[T]) capacityOf(level growthLevel) int {
	if level == rootLevel {
		return t.rootCap
	}

	return t.nodeCap
}

func (t *rawTrie[T]) len() int {
	return t.root.len()
}

// growRoot replaces the root array seen as old by one of double capacity.
// Losers wait on the mutex and return once the array has been replaced.
func (t *rawTrie[T]) growRoot(old epoch.Shared[cells[T]], g *epoch.Guard) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.root.cur.Load(g).Is(old) {
		return // somebody has already done it
	}

	t.resizing.Store(true)
	defer t.resizing.Store(false)

	next, installed := t.root.migrate(old, g)
	if !installed {
		return
	}

	size := len(next.Deref().items)

	t.rootGrowths.Add(1)
	t.obs.ObserveGrowth(string(rootLevel), size)
	t.log.WithFields(logrus.Fields{"level": rootLevel, "capacity": size, "len": t.len()}).Debug("root grown")

	t.root.retire(old, t, g)
}

// findRoot returns the root node holding val or nil.
func (t *rawTrie[T]) findRoot(val T, g *epoch.Guard) *node[T] {
	if cell := t.root.find(val, t.eq, g); cell != nil {
		return cell.Load(g).Deref()
	}

	return nil
}

// pushReturn returns the root node holding val, publishing a new one into the
// next free root cell if needed.
func (t *rawTrie[T]) pushReturn(val T, terminal bool, g *epoch.Guard) *node[T] {
	n, created := t.root.insert(val, func() *node[T] {
		return newNode(val, terminal)
	}, rootLevel, t, g)

	if created {
		t.nodes.Add(1)
	} else if terminal {
		n.markTerminal()
	}

	return n
}

// insert adds values as a chain of nodes, reusing the existing prefix.
func (t *rawTrie[T]) insert(values []T, g *epoch.Guard) {
	if len(values) == 0 {
		return
	}

	last := len(values) - 1
	n := t.pushReturn(values[0], last == 0, g)

	for i := 1; i <= last; i++ {
		n = n.addChild(values[i], i == last, t, g)
	}

	t.obs.ObserveInsert(t.len())
}

// walk follows prefix from the root and returns its last node or nil.
// path receives the stored values of the nodes visited before it.
func (t *rawTrie[T]) walk(prefix []T, g *epoch.Guard) (n *node[T], path []T) {
	if len(prefix) == 0 {
		return nil, nil
	}

	path = make([]T, 0, len(prefix)-1)
	n = t.findRoot(prefix[0], g)

	for i := 1; n != nil && i < len(prefix); i++ {
		path = append(path, n.val)
		n = n.child(prefix[i], t, g)
	}

	return n, path
}

// find collects every stored sequence extending prefix. A prefix that is not
// present in the trie (even partially) gives an empty result. The sequences
// carry the stored elements, not the ones of the prefix.
func (t *rawTrie[T]) find(prefix []T, g *epoch.Guard) *Found[T] {
	found := newFound(t.eq)

	if n, path := t.walk(prefix, g); n != nil {
		found.collect(n, path, g)
	}

	t.obs.ObserveFind(found.Len())

	return found
}

// contains reports whether exactly this sequence has been inserted.
func (t *rawTrie[T]) contains(values []T, g *epoch.Guard) bool {
	n, _ := t.walk(values, g)

	return n != nil && n.isTerminal()
}

// all collects every stored sequence.
func (t *rawTrie[T]) all(g *epoch.Guard) *Found[T] {
	found := newFound(t.eq)

	for _, n := range t.root.nodes(g) {
		found.collect(n, nil, g)
	}

	return found
}

func (t *rawTrie[T]) stats(g *epoch.Guard) Stats {
	return Stats{
		RootLen:     t.len(),
		RootCap:     t.root.capacity(g),
		Nodes:       int(t.nodes.Load()),
		RootGrowths: int(t.rootGrowths.Load()),
		NodeGrowths: int(t.nodeGrowths.Load()),
		Retired:     int(t.retired.Load()),
		Resizing:    t.resizing.Load(),
	}
}

func (t *rawTrie[T]) dump(g *epoch.Guard) string {
	var b strings.Builder

	for _, n := range t.root.nodes(g) {
		n.dump(&b, 0, g)
	}

	return b.String()
}
