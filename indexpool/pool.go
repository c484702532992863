package indexpool

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrAllocation is returned when Alloc cannot reserve heap capacity.
	ErrAllocation = errors.New("indexpool: allocation failed")
	// ErrExhausted is returned when every int32 index has been issued.
	ErrExhausted = errors.New("indexpool: index space exhausted")
)

const (
	// initialCapacity is the first heap capacity reserved by Alloc.
	initialCapacity = 8
	int32Size       = 4
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

// Option configures a Pool.
type Option func(*Pool)

// WithMemoryAcquirer charges heap growth to acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(p *Pool) {
		p.acquirer = acquirer
	}
}

// Pool allocates the smallest unused non-negative index.
//
// Invariant: every index in [0, nextIndex) is either outstanding or in the heap exactly once,
// and the heap capacity is at least nextIndex.
type Pool struct {
	mu        sync.Mutex
	heap      minHeap
	nextIndex int32
	acquirer  MemoryAcquirer
}

// New creates an empty Pool.
func New(opts ...Option) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Alloc returns the smallest index not currently in use.
func (p *Pool) Alloc() (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.heap.len() > 0 {
		return p.heap.pop(), nil
	}

	if p.nextIndex == math.MaxInt32 {
		return -1, ErrExhausted
	}
	// Reserve room to push this index back before handing it out.
	if need := int(p.nextIndex) + 1; need > p.heap.capacity() {
		if err := p.reserve(need); err != nil {
			return -1, err
		}
	}

	idx := p.nextIndex
	p.nextIndex++
	return idx, nil
}

// Free returns index to the pool. It never allocates and never fails.
//
// Freeing an index that was not issued panics; freeing one twice corrupts the pool.
func (p *Pool) Free(index int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= p.nextIndex {
		panic(fmt.Sprintf("indexpool: free of unissued index %d (next %d)", index, p.nextIndex))
	}
	p.heap.push(index)
}

// Dispose releases the heap storage. The pool must not be used afterwards.
func (p *Pool) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.acquirer != nil {
		p.acquirer.ReleaseMemory(int64(p.heap.capacity()) * int32Size)
	}
	p.heap.items = nil
	p.nextIndex = 0
}

// Len returns the number of freed indices waiting for reuse.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.heap.len()
}

// NextIndex returns the next never-issued index.
func (p *Pool) NextIndex() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextIndex
}

// Outstanding returns the number of indices currently allocated.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.nextIndex) - p.heap.len()
}

// reserve grows the heap capacity to at least need by doubling.
func (p *Pool) reserve(need int) error {
	oldCap := p.heap.capacity()
	newCap := oldCap * 2
	if newCap == 0 {
		newCap = initialCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	newCap = min(newCap, math.MaxInt32)

	if p.acquirer != nil {
		if err := p.acquirer.AcquireMemory(int64(newCap-oldCap) * int32Size); err != nil {
			return fmt.Errorf("%w: reserve %d slots: %w", ErrAllocation, newCap, err)
		}
	}
	p.heap.grow(newCap)
	return nil
}
