// Package testutil provides testing utilities for cyclegc.
//
// This package is intended for use in tests and benchmarks only.
// It provides a reference-counted object model that satisfies gc.Object, and a
// seeded, goroutine-safe random source for churn tests.
//
// # Object Model
//
//	heap := testutil.NewHeap(collector)
//	a, b := heap.New("a"), heap.New("b")
//	a.Link(b)
//	b.Link(a)
//	heap.Drop(a) // release the creator's references
//	heap.Drop(b) // a and b now only keep each other alive
//
//	collector.Collect() // frees both
package testutil
