// Package epoch implements epoch-based memory reclamation together with a small
// family of atomic pointer types built on top of it.
//
// Pointer types:
// -------------
//
//   - Atomic[T] - a shared cell holding a tagged pointer; supports Load, Store,
//     Swap and CompareAndSwap;
//   - Owned[T]  - a uniquely owned value that has not been published yet;
//   - Shared[T] - a pointer borrowed from an Atomic for the lifetime of a Guard.
//
// Each stored pointer carries a small tag (TagBits wide) that travels together
// with it through loads and compare-and-swaps. Go's garbage collector does not
// allow tags to live in the low pointer bits, so every stored value is an
// immutable (pointer, tag) word allocated once and compared by identity.
//
// Pinning:
// -------
//
//	g := collector.Pin()
//	defer g.Unpin()
//
//	p := cell.Load(g)     // p stays valid until g is unpinned
//	...
//	g.Defer(func() { ... }) // runs only after a grace period
//
// A grace period elapses once the global epoch has advanced twice past the
// epoch a destructor was registered in. The epoch only advances when every
// pinned participant has observed the current one, so no guard that was pinned
// at the time of Defer can still be pinned when the destructor runs.
package epoch
