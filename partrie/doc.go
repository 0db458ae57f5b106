// Package partrie defines a concurrent, lock-free prefix tree over sequences of
// an arbitrary element type.
//
// Many goroutines may Insert and Find at the same time. Readers never lock and
// writers only synchronize through compare-and-swap on single cells, except for
// the short swap-in step of a root array resize which is serialized by a mutex.
//
// Layout:
// ------
//
//	rawTrie.root: [ c | h | z | . | . | . | . | . ]     (grows x2 when full)
//	                |   |   `-- z -- e -- b -- r -- a$
//	                |   `-- h -- e$ -- l -- p$
//	                |               `-- f -- t$
//	                `-- c -- o -- d$ -- e$ -- r$
//	                               |          `-- s$
//	                               `-- i -- n -- g$
//
// Every node holds one element, a growable array of children (13 cells to
// start with) and a terminal flag ($) marking the end of an inserted sequence.
// Children are kept in insertion order and looked up by a linear scan.
//
// Growth:
// ------
//
// A full array is replaced by one of double capacity: every cell of the old
// array is frozen (tagged), copied to the same index of the new one and the
// new array is installed with a compare-and-swap. Goroutines meeting a frozen
// cell help finish the copy and retry on the new array, so an insert is never
// lost and no element ever appears twice among siblings. The old array is
// handed to the epoch collector and released after a grace period.
//
// Example:
// -------
//
//	t := partrie.New[rune]()
//
//	t.Insert(partrie.Runes("cat"))
//	t.Insert(partrie.Runes("cow"))
//
//	found := t.Find(partrie.Runes("c"))
//	partrie.RuneStrings(found) // ["cat" "cow"]
package partrie
