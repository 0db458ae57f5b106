package epoch

import "fmt"

// Shared is a pointer borrowed from an Atomic. It must not outlive the Guard
// it was loaded with.
type Shared[T any] struct {
	l *link[T]
}

// Null returns an untagged null pointer.
func Null[T any]() Shared[T] {
	return Shared[T]{}
}

func (s Shared[T]) word() *link[T] {
	return s.l
}

// IsNull reports whether the pointer part is nil (regardless of the tag).
func (s Shared[T]) IsNull() bool {
	return s.l == nil || s.l.ptr == nil
}

// Deref returns the referent or nil for a null pointer.
func (s Shared[T]) Deref() *T {
	if s.l == nil {
		return nil
	}

	return s.l.ptr
}

func (s Shared[T]) Tag() uintptr {
	if s.l == nil {
		return 0
	}

	return s.l.tag
}

// WithTag returns the same pointer carrying a different tag. The result is a
// new word: it never compares equal to s in a CompareAndSwap.
func (s Shared[T]) WithTag(tag uintptr) Shared[T] {
	return Shared[T]{l: newLink(s.Deref(), tag)}
}

// Is reports whether both values are the very same stored word.
func (s Shared[T]) Is(other Shared[T]) bool {
	return s.l == other.l
}

// IntoOwned converts a borrowed pointer back into an owned one.
//
// The caller must guarantee exclusivity: the referent has been unlinked from
// every Atomic (for instance the caller has just won the CompareAndSwap that
// removed it) or the structure has never been shared.
func (s Shared[T]) IntoOwned() Owned[T] {
	if s.IsNull() {
		return Owned[T]{}
	}

	return Owned[T]{l: &link[T]{ptr: s.l.ptr, tag: s.l.tag}}
}

func (s Shared[T]) String() string {
	if s.l == nil {
		return "<shared|nil>"
	}

	return fmt.Sprintf("<shared|%p|tag:%d>", s.l.ptr, s.l.tag)
}
