package epoch

import (
	"fmt"
	"sync/atomic"
)

const (
	TagBits         = 3                  // same width an 8-byte alignment leaves free
	TagMask uintptr = (1 << TagBits) - 1 // 0b_111
)

// link is the immutable word stored in an Atomic.
// An untagged null is always represented by a nil *link.
type link[T any] struct {
	ptr *T
	tag uintptr
}

func newLink[T any](ptr *T, tag uintptr) *link[T] {
	tag &= TagMask

	if ptr == nil && tag == 0 {
		return nil
	}

	return &link[T]{ptr: ptr, tag: tag}
}

// Pointer is implemented by Owned and Shared - the two kinds of values
// that can be written into an Atomic.
type Pointer[T any] interface {
	word() *link[T]
}

// Atomic is a tagged pointer cell. The zero value is a null pointer.
type Atomic[T any] struct {
	p atomic.Pointer[link[T]]
}

// NewAtomic returns a cell already holding the given pointer.
func NewAtomic[T any](p Pointer[T]) *Atomic[T] {
	var a Atomic[T]

	a.p.Store(p.word())

	return &a
}

// Load reads the cell. The result may be dereferenced until g is unpinned.
func (a *Atomic[T]) Load(_ *Guard) Shared[T] {
	return Shared[T]{l: a.p.Load()}
}

// Store overwrites the cell unconditionally.
func (a *Atomic[T]) Store(p Pointer[T]) {
	a.p.Store(p.word())
}

// Swap stores p and returns the previous value.
func (a *Atomic[T]) Swap(p Pointer[T], _ *Guard) Shared[T] {
	return Shared[T]{l: a.p.Swap(p.word())}
}

// CompareAndSwap stores next if the cell still holds current (pointer and tag).
//
// On success the stored value is returned along with true. On failure the value
// found in the cell is returned along with false; next was not published and
// still belongs to the caller.
func (a *Atomic[T]) CompareAndSwap(current Shared[T], next Pointer[T], _ *Guard) (Shared[T], bool) {
	word := next.word()

	if a.p.CompareAndSwap(current.l, word) {
		return Shared[T]{l: word}, true
	}

	return Shared[T]{l: a.p.Load()}, false
}

// FetchTag ORs bits into the tag of the current pointer, keeping the pointer
// part intact, and returns the previous value.
func (a *Atomic[T]) FetchTag(bits uintptr, g *Guard) Shared[T] {
	bits &= TagMask

	cur := a.Load(g)

	for cur.Tag()&bits != bits {
		actual, ok := a.CompareAndSwap(cur, cur.WithTag(cur.Tag()|bits), g)
		if ok {
			break
		}

		cur = actual
	}

	return cur
}

func (a *Atomic[T]) String() string {
	l := a.p.Load()
	if l == nil {
		return "<atomic|nil>"
	}

	return fmt.Sprintf("<atomic|%p|tag:%d>", l.ptr, l.tag)
}
