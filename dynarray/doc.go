// Package dynarray provides Array, a generic growable sequence that owns its elements.
//
// Every Array carries a Deallocator that is applied to values the array evicts
// (Set, Remove, Clear). Pop and SwapPop hand ownership back to the caller instead.
//
// # Growth
//
// Capacity doubles when a mutating call would exceed it. Growth can be charged to a
// MemoryAcquirer (for example a resource.Controller); when the acquirer refuses, the
// mutating call returns ErrAllocation and the array is left exactly as it was.
//
// # Concurrency
//
// Array is single-writer. Callers that share one across goroutines must synchronise.
package dynarray
