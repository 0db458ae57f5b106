package partrie

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/aglyzov/partrie/epoch"
)

// Found is the result of a search: every complete sequence that extends the
// searched prefix, in discovery order (depth-first, children in insertion
// order). It is a snapshot and never changes after it has been returned.
type Found[T any] struct {
	collected [][]T
	eq        func(a, b T) bool
}

func newFound[T any](eq func(a, b T) bool) *Found[T] {
	return &Found[T]{eq: eq}
}

// frame stands for one node still to be visited; depth is the length of the
// path leading to (and excluding) the node.
type frame[T any] struct {
	node  *node[T]
	depth int
}

// collect walks the subtree of start depth-first. base is the path from the
// root down to (excluding) start.
func (f *Found[T]) collect(start *node[T], base []T, g *epoch.Guard) {
	var (
		path  = slices.Clone(base)
		stack = []frame[T]{{node: start, depth: len(base)}}
	)

	for len(stack) != 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path = append(path[:top.depth], top.node.val)

		if top.node.isTerminal() {
			f.collected = append(f.collected, slices.Clone(path))
		}

		// push in reverse so the first child is visited first
		kids := top.node.children.nodes(g)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame[T]{node: kids[i], depth: top.depth + 1})
		}
	}
}

// Collected returns the sequences found. The slice is shared: do not modify it.
func (f *Found[T]) Collected() [][]T {
	return f.collected
}

func (f *Found[T]) Len() int {
	return len(f.collected)
}

func (f *Found[T]) IsEmpty() bool {
	return len(f.collected) == 0
}

// Contains reports whether seq is one of the found sequences.
func (f *Found[T]) Contains(seq []T) bool {
	for _, c := range f.collected {
		if slices.EqualFunc(c, seq, f.eq) {
			return true
		}
	}

	return false
}

// All iterates over the found sequences.
func (f *Found[T]) All() iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for _, c := range f.collected {
			if !yield(c) {
				return
			}
		}
	}
}

func (f *Found[T]) String() string {
	var b strings.Builder

	b.WriteString("<found|")
	fmt.Fprintf(&b, "%d", len(f.collected))

	for _, c := range f.collected {
		fmt.Fprintf(&b, "|%v", c)
	}

	b.WriteString(">")

	return b.String()
}
