package epoch

import "fmt"

// Owned is a uniquely owned heap value which has not been published into an
// Atomic yet. Once published (via Store, Swap, a successful CompareAndSwap or
// IntoShared) the Owned must not be used again.
type Owned[T any] struct {
	l *link[T]
}

// NewOwned moves v to the heap.
func NewOwned[T any](v T) Owned[T] {
	return Owned[T]{l: &link[T]{ptr: &v}}
}

// OwnedFrom takes ownership of an already allocated value.
// It panics on nil: an Owned is never null.
func OwnedFrom[T any](ptr *T) Owned[T] {
	if ptr == nil {
		panic("epoch: OwnedFrom(nil)")
	}

	return Owned[T]{l: &link[T]{ptr: ptr}}
}

func (o Owned[T]) word() *link[T] {
	return o.l
}

func (o Owned[T]) Deref() *T {
	if o.l == nil {
		return nil
	}

	return o.l.ptr
}

func (o Owned[T]) Tag() uintptr {
	if o.l == nil {
		return 0
	}

	return o.l.tag
}

// WithTag returns the same value carrying a different tag.
func (o Owned[T]) WithTag(tag uintptr) Owned[T] {
	return Owned[T]{l: newLink(o.Deref(), tag)}
}

// IntoShared publishes the value for the lifetime of g without storing it
// anywhere. It is mostly useful right before a Store.
func (o Owned[T]) IntoShared(_ *Guard) Shared[T] {
	return Shared[T]{l: o.l}
}

func (o Owned[T]) String() string {
	return fmt.Sprintf("<owned|%p|tag:%d>", o.Deref(), o.Tag())
}
