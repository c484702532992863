// Package indexpool hands out small non-negative int32 slot indices, always the smallest
// one not currently in use.
//
// Freed indices live in a binary min-heap; fresh ones come from a monotonically increasing
// counter. The pool is meant for per-thread slots: Alloc runs when a thread is created and
// may fail, Free runs at teardown and never does.
//
// # Allocation Asymmetry
//
// Before Alloc hands out a fresh index it grows the heap so that it could hold every index
// issued so far. The only allocation in the pool therefore happens in Alloc, and Free is an
// unconditional O(log k) push into capacity that is already reserved.
//
// # Thread Safety
//
// All methods are safe for concurrent use. A single mutex guards the heap and the counter.
package indexpool
