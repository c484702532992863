// Package gc implements a generational cycle collector for reference-counted object graphs.
//
// Reference counting frees most objects the moment their last reference drops, but it can
// never free a cycle. The Collector tracks container objects that may take part in cycles and
// periodically looks for groups of them that are only referenced from inside the group.
//
// # Object Contract
//
// The collector never inspects object memory. Objects implement Object, embed a Header for
// the collector's bookkeeping, and expose their outgoing references through VisitReferences:
//
//	type Node struct {
//	    gc.Header
//	    refcnt int
//	    refs   []*Node
//	}
//
//	func (n *Node) GCHeader() *gc.Header { return &n.Header }
//	func (n *Node) RefCount() int         { return n.refcnt }
//	func (n *Node) VisitReferences(visit func(gc.Object)) {
//	    for _, r := range n.refs {
//	        visit(r)
//	    }
//	}
//
// # Generations
//
// New objects enter generation 0. Survivors of a collection move one generation up; objects
// in generation 2 stay there. Freeze moves every tracked object into the permanent
// generation, which is never scanned.
//
// MaybeCollect is called by the allocator after each allocation. It collects the oldest
// generation whose count exceeds its threshold. A full collection (generation 2) additionally
// requires the objects that survived since the last full collection to exceed 25% of the
// objects that survived it, which keeps the amortised cost of full collections linear in the
// number of long-lived objects.
//
// # Algorithm
//
// A collection of generation n merges generations 0..n and runs trial deletion:
//
//  1. every object's scratch count starts at its reference count
//  2. every reference from one member to another decrements the target's scratch count
//  3. objects left with a positive count are referenced from outside and are roots; everything
//     they reach is alive
//  4. the remainder is cyclic trash
//
// Finalizers of cyclic trash run once. If a finalizer makes any trash reachable again, that
// object and everything it reaches are moved to the garbage list and reported as uncollectable.
// Everything else has its references cleared, which lets reference counting free it.
//
// # Concurrency
//
// A Collector is not safe for concurrent use. The embedding runtime must serialise collector
// calls and quiesce graph mutation while a collection runs.
package gc
