package partrie

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aglyzov/partrie/epoch"
)

// node is one position of one or more sequences.
type node[T any] struct {
	val      T
	children slots[T]    // allocated on the first child
	terminal atomic.Bool // some sequence ends here; never reset
}

func newNode[T any](val T, terminal bool) *node[T] {
	n := &node[T]{val: val}
	n.terminal.Store(terminal)

	return n
}

func (n *node[T]) isTerminal() bool {
	return n.terminal.Load()
}

func (n *node[T]) markTerminal() {
	n.terminal.Store(true)
}

func (n *node[T]) childLen() int {
	return n.children.len()
}

// findNode returns the child cell holding val (not a copy of it).
func (n *node[T]) findNode(val T, t *rawTrie[T], g *epoch.Guard) *epoch.Atomic[node[T]] {
	return n.children.find(val, t.eq, g)
}

func (n *node[T]) childPosition(val T, t *rawTrie[T], g *epoch.Guard) int {
	return n.children.position(val, t.eq, g)
}

// child returns the child holding val or nil.
func (n *node[T]) child(val T, t *rawTrie[T], g *epoch.Guard) *node[T] {
	if cell := n.findNode(val, t, g); cell != nil {
		return cell.Load(g).Deref()
	}

	return nil
}

// addChild returns the existing child holding val or publishes a new one.
func (n *node[T]) addChild(val T, terminal bool, t *rawTrie[T], g *epoch.Guard) *node[T] {
	child, created := n.children.insert(val, func() *node[T] {
		return newNode(val, terminal)
	}, nodeLevel, t, g)

	if created {
		t.nodes.Add(1)
	} else if terminal {
		child.markTerminal()
	}

	return child
}

// childrenIter returns the occupied child cells in insertion order.
func (n *node[T]) childrenIter(g *epoch.Guard) []*epoch.Atomic[node[T]] {
	return n.children.occupied(g)
}

func (n *node[T]) dump(b *strings.Builder, depth int, g *epoch.Guard) {
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(b, "%v", n.val)

	if n.isTerminal() {
		b.WriteString(" $")
	}

	b.WriteByte('\n')

	for _, cell := range n.childrenIter(g) {
		cell.Load(g).Deref().dump(b, depth+1, g)
	}
}
