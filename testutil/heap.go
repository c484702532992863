package testutil

import (
	"fmt"

	"github.com/hupe1980/cyclegc/gc"
)

// Heap is a reference-counted object model wired to a Collector.
// Freed nodes are untracked, and cascading frees go through the collector's trash stack.
type Heap struct {
	c      *gc.Collector
	live   map[*Node]struct{}
	roots  []*Node
	freed  int
	nextID int
}

// NewHeap creates a Heap whose nodes are tracked by c.
func NewHeap(c *gc.Collector) *Heap {
	return &Heap{
		c:    c,
		live: make(map[*Node]struct{}),
	}
}

// Node is a container object. Its reference count includes one reference per incoming
// link, plus any references the test holds.
type Node struct {
	gc.Header

	Name string
	ID   int

	heap   *Heap
	refcnt int
	refs   []*Node
	freed  bool

	// OnFinalize, when set, is the node's finalizer.
	OnFinalize func(n *Node) error
	// Frozen marks the node's reference set as immutable.
	Frozen bool
}

// New allocates a tracked node holding one reference for the caller.
func (h *Heap) New(name string) *Node {
	n := h.NewUntracked(name)
	h.c.Track(n)
	return n
}

// NewUntracked allocates a node the collector does not know about.
func (h *Heap) NewUntracked(name string) *Node {
	h.nextID++
	n := &Node{Name: name, ID: h.nextID, heap: h, refcnt: 1}
	h.live[n] = struct{}{}
	return n
}

// Cycle allocates size tracked nodes linked in a ring and drops the caller's references,
// leaving an isolated cycle. The nodes are returned for inspection only.
func (h *Heap) Cycle(prefix string, size int) []*Node {
	nodes := make([]*Node, size)
	for i := range nodes {
		nodes[i] = h.New(fmt.Sprintf("%s%d", prefix, i))
	}
	for i, n := range nodes {
		n.Link(nodes[(i+1)%size])
	}
	for _, n := range nodes {
		h.Drop(n)
	}
	return nodes
}

// Link adds a reference from n to to.
func (n *Node) Link(to *Node) {
	to.refcnt++
	n.refs = append(n.refs, to)
}

// Unlink removes one reference from n to to.
func (n *Node) Unlink(to *Node) {
	for i, r := range n.refs {
		if r == to {
			n.refs = append(n.refs[:i], n.refs[i+1:]...)
			n.heap.Drop(to)
			return
		}
	}
}

// Refs returns the nodes n references.
func (n *Node) Refs() []*Node { return n.refs }

// Freed reports whether the node has been destroyed.
func (n *Node) Freed() bool { return n.freed }

// Hold adds a reference held by the test.
func (h *Heap) Hold(n *Node) { n.refcnt++ }

// Drop releases one reference and frees the node when none remain.
func (h *Heap) Drop(n *Node) {
	n.refcnt--
	if n.refcnt == 0 {
		h.c.Trash().Destroy(n)
	}
}

// Root keeps n alive from a global root set, as a finalizer resurrecting an object would.
func (h *Heap) Root(n *Node) {
	n.refcnt++
	h.roots = append(h.roots, n)
}

// ReleaseRoots drops every root reference.
func (h *Heap) ReleaseRoots() {
	roots := h.roots
	h.roots = nil
	for _, n := range roots {
		h.Drop(n)
	}
}

// Live returns the number of nodes not yet freed.
func (h *Heap) Live() int { return len(h.live) }

// Freed returns the number of nodes freed so far.
func (h *Heap) Freed() int { return h.freed }

// Destroy frees the node. It is called through the trash stack.
func (n *Node) Destroy() {
	if n.freed {
		return
	}
	h := n.heap
	h.c.Untrack(n)
	n.freed = true
	h.freed++
	delete(h.live, n)

	refs := n.refs
	n.refs = nil
	for _, r := range refs {
		h.Drop(r)
	}
}

// GCHeader implements gc.Object.
func (n *Node) GCHeader() *gc.Header { return &n.Header }

// RefCount implements gc.Object.
func (n *Node) RefCount() int { return n.refcnt }

// VisitReferences implements gc.Object.
func (n *Node) VisitReferences(visit func(gc.Object)) {
	for _, r := range n.refs {
		visit(r)
	}
}

// ClearReferences implements gc.Object.
func (n *Node) ClearReferences() {
	refs := n.refs
	n.refs = nil
	for _, r := range refs {
		n.heap.Drop(r)
	}
}

// HasFinalizer implements gc.Object.
func (n *Node) HasFinalizer() bool { return n.OnFinalize != nil }

// Finalize implements gc.Object.
func (n *Node) Finalize() error {
	if n.OnFinalize == nil {
		return nil
	}
	return n.OnFinalize(n)
}

// ImmutableReferences implements gc.Immutable.
func (n *Node) ImmutableReferences() bool { return n.Frozen }

func (n *Node) String() string { return n.Name }
