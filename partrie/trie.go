package partrie

import (
	"iter"
	"slices"

	"github.com/aglyzov/partrie/epoch"
)

// Trie is a concurrent prefix tree over sequences of T. All methods are safe
// for concurrent use and none of them takes a lock, except for the short
// swap-in step of a root array resize.
type Trie[T any] struct {
	raw       *rawTrie[T]
	collector *epoch.Collector
}

// Stats is a point-in-time view of the trie's structure.
type Stats struct {
	RootLen     int  `json:"rootLen" yaml:"rootLen"`         // distinct first elements
	RootCap     int  `json:"rootCap" yaml:"rootCap"`         // capacity of the current root array
	Nodes       int  `json:"nodes" yaml:"nodes"`             // total nodes
	RootGrowths int  `json:"rootGrowths" yaml:"rootGrowths"` // root array resizes
	NodeGrowths int  `json:"nodeGrowths" yaml:"nodeGrowths"` // children array resizes
	Retired     int  `json:"retired" yaml:"retired"`         // old arrays reclaimed after a grace period
	Resizing    bool `json:"resizing" yaml:"resizing"`       // a root resize is in flight
}

// New returns an empty Trie for a comparable element type.
func New[T comparable](opts ...Option) *Trie[T] {
	return NewWithEqual(func(a, b T) bool { return a == b }, opts...)
}

// NewWithEqual is like New except that elements are compared with eq.
func NewWithEqual[T any](eq func(a, b T) bool, opts ...Option) *Trie[T] {
	if eq == nil {
		panic("partrie: nil equality function")
	}

	cfg := newConfig(opts)

	return &Trie[T]{
		raw:       newRawTrie(eq, cfg),
		collector: cfg.collector,
	}
}

// Insert adds the sequence produced by seq. An empty sequence is a no-op.
func (t *Trie[T]) Insert(seq iter.Seq[T]) {
	t.InsertSlice(slices.Collect(seq))
}

func (t *Trie[T]) InsertSlice(values []T) {
	g := t.collector.Pin()
	defer g.Unpin()

	t.raw.insert(values, g)
}

// Find returns every inserted sequence starting with the prefix produced by
// seq. An empty or unknown prefix gives an empty result.
//
// Inserts running concurrently with Find may or may not be visible in the
// result; each node is observed atomically, the query as a whole is not.
func (t *Trie[T]) Find(seq iter.Seq[T]) *Found[T] {
	return t.FindSlice(slices.Collect(seq))
}

func (t *Trie[T]) FindSlice(prefix []T) *Found[T] {
	g := t.collector.Pin()
	defer g.Unpin()

	return t.raw.find(prefix, g)
}

// Contains reports whether exactly this sequence has been inserted.
func (t *Trie[T]) Contains(seq iter.Seq[T]) bool {
	return t.ContainsSlice(slices.Collect(seq))
}

func (t *Trie[T]) ContainsSlice(values []T) bool {
	g := t.collector.Pin()
	defer g.Unpin()

	return t.raw.contains(values, g)
}

// All returns every inserted sequence.
func (t *Trie[T]) All() *Found[T] {
	g := t.collector.Pin()
	defer g.Unpin()

	return t.raw.all(g)
}

// Len returns the number of distinct first elements (not sequences).
func (t *Trie[T]) Len() int {
	return t.raw.len()
}

func (t *Trie[T]) IsEmpty() bool {
	return t.Len() == 0
}

func (t *Trie[T]) Stats() Stats {
	g := t.collector.Pin()
	defer g.Unpin()

	return t.raw.stats(g)
}

// String dumps the node graph, one node per line; terminal nodes end with $.
func (t *Trie[T]) String() string {
	g := t.collector.Pin()
	defer g.Unpin()

	return t.raw.dump(g)
}
