// Package cyclegc provides an embeddable object-lifecycle runtime for Go programs that
// manage reference-counted object graphs.
//
// Reference counting frees most objects the moment their last reference goes away, but
// it never frees a cycle. cyclegc supplies the pieces a reference-counted object model
// needs around that gap:
//
//   - gc: a generational cycle collector based on trial deletion
//   - trash: bounded-depth deferred destruction for long reference chains
//   - indexpool: a smallest-first integer index allocator for thread slots
//   - dynarray: the growable owning array the other packages are built on
//   - census: compressed point-in-time snapshots of collector state
//
// # Quick Start
//
//	rt, _ := cyclegc.New(cyclegc.WithThresholds(700, 10, 10))
//	defer rt.Close()
//
//	rt.Track(obj)       // after allocating a container object
//	rt.MaybeCollect()   // on every allocation
//	stats, _ := rt.Collect(ctx)
//
// Objects implement gc.Object and embed gc.Header. Frees that cascade out of a
// destructor should go through the collector's trash stack:
//
//	rt.Do(func(c *gc.Collector) {
//	    c.Trash().Destroy(obj)
//	})
//
// # Threads
//
// Each goroutine that mutates the object graph attaches to the runtime and receives the
// smallest free thread slot:
//
//	ts, _ := rt.AttachThread()
//	defer ts.Detach()
//
// # Resource Limits
//
// Collector scratch space and the slot heap are charged to a resource.Controller. A
// collection that cannot reserve its scratch space is aborted before it touches any
// object, and reported as ErrAllocation.
package cyclegc
