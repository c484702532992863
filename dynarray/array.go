package dynarray

import (
	"errors"
	"fmt"
	"iter"
	"unsafe"
)

var (
	// ErrAllocation is returned when the backing storage cannot grow.
	ErrAllocation = errors.New("dynarray: allocation failed")
	// ErrIndexOutOfRange is returned for an index outside the valid range of an operation.
	ErrIndexOutOfRange = errors.New("dynarray: index out of range")
)

// DefaultInitialCapacity is the capacity used when an empty array first grows.
const DefaultInitialCapacity = 8

// Deallocator releases a value evicted from the array.
type Deallocator[T any] func(T)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

// Option is a configuration option for Array.
type Option func(*config)

type config struct {
	acquirer MemoryAcquirer
}

// WithMemoryAcquirer charges backing storage growth to acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(c *config) {
		c.acquirer = acquirer
	}
}

// Array is a growable, owning sequence.
//
// Invariant: len(a.items) is the capacity and a.length never exceeds it;
// slots [length, capacity) always hold the zero value.
type Array[T any] struct {
	items    []T
	length   int
	dealloc  Deallocator[T]
	acquirer MemoryAcquirer
}

// New creates an Array with room for capacity items. dealloc may be nil.
func New[T any](capacity int, dealloc Deallocator[T], opts ...Option) (*Array[T], error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Array[T]{
		dealloc:  dealloc,
		acquirer: cfg.acquirer,
	}
	if capacity > 0 {
		if err := a.resize(capacity); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Len returns the number of items.
func (a *Array[T]) Len() int { return a.length }

// Cap returns the capacity of the backing storage.
func (a *Array[T]) Cap() int { return len(a.items) }

// Get returns the item at index. It panics if index is out of range, like a slice.
func (a *Array[T]) Get(index int) T {
	if index < 0 || index >= a.length {
		panic(fmt.Sprintf("dynarray: index %d out of range [0:%d]", index, a.length))
	}
	return a.items[index]
}

// All iterates over index/item pairs in order.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < a.length; i++ {
			if !yield(i, a.items[i]) {
				return
			}
		}
	}
}

// Append adds item at the end.
func (a *Array[T]) Append(item T) error {
	if err := a.ensure(a.length + 1); err != nil {
		return err
	}
	a.items[a.length] = item
	a.length++
	return nil
}

// Insert places item at index, shifting later items right. index may equal Len.
// Capacity is secured before anything moves, so a failed growth leaves the array untouched.
func (a *Array[T]) Insert(index int, item T) error {
	if index < 0 || index > a.length {
		return fmt.Errorf("%w: insert at %d with length %d", ErrIndexOutOfRange, index, a.length)
	}
	if err := a.ensure(a.length + 1); err != nil {
		return err
	}
	copy(a.items[index+1:a.length+1], a.items[index:a.length])
	a.items[index] = item
	a.length++
	return nil
}

// Set replaces the item at index, deallocating the previous value first.
func (a *Array[T]) Set(index int, item T) error {
	if index < 0 || index >= a.length {
		return fmt.Errorf("%w: set at %d with length %d", ErrIndexOutOfRange, index, a.length)
	}
	a.release(a.items[index])
	a.items[index] = item
	return nil
}

// Remove deallocates the item at index and shifts later items left.
func (a *Array[T]) Remove(index int) error {
	item, err := a.Pop(index)
	if err != nil {
		return err
	}
	a.release(item)
	return nil
}

// Pop removes the item at index and returns it without deallocating it.
// Ownership passes to the caller.
func (a *Array[T]) Pop(index int) (T, error) {
	var zero T
	if index < 0 || index >= a.length {
		return zero, fmt.Errorf("%w: pop at %d with length %d", ErrIndexOutOfRange, index, a.length)
	}
	item := a.items[index]
	copy(a.items[index:a.length-1], a.items[index+1:a.length])
	a.length--
	a.items[a.length] = zero
	return item, nil
}

// SwapPop removes the item at index in O(1) by moving the last item into its slot.
// The removed item is returned without deallocation. Order is not preserved.
func (a *Array[T]) SwapPop(index int) (T, error) {
	var zero T
	if index < 0 || index >= a.length {
		return zero, fmt.Errorf("%w: swap-pop at %d with length %d", ErrIndexOutOfRange, index, a.length)
	}
	item := a.items[index]
	last := a.length - 1
	a.items[index] = a.items[last]
	a.items[last] = zero
	a.length--
	return item, nil
}

// Truncate shortens the array to n items without deallocating the dropped ones.
// The capacity is kept. n outside [0, Len] is clamped.
func (a *Array[T]) Truncate(n int) {
	n = max(0, min(n, a.length))
	clear(a.items[n:a.length])
	a.length = n
}

// Clear deallocates every item, then releases the backing storage.
func (a *Array[T]) Clear() {
	// Detach first so a deallocator that inspects the array sees it empty.
	items, length := a.items, a.length
	a.items = nil
	a.length = 0
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(bytesFor[T](len(items)))
	}
	for i := 0; i < length; i++ {
		a.release(items[i])
	}
}

func (a *Array[T]) release(item T) {
	if a.dealloc != nil {
		a.dealloc(item)
	}
}

func (a *Array[T]) ensure(need int) error {
	if need <= len(a.items) {
		return nil
	}
	newCap := len(a.items) * 2
	if newCap == 0 {
		newCap = DefaultInitialCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	return a.resize(newCap)
}

func (a *Array[T]) resize(newCap int) error {
	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(bytesFor[T](newCap - len(a.items))); err != nil {
			return fmt.Errorf("%w: grow to %d: %w", ErrAllocation, newCap, err)
		}
	}
	items := make([]T, newCap)
	copy(items, a.items[:a.length])
	a.items = items
	return nil
}

func bytesFor[T any](n int) int64 {
	var zero T
	return int64(n) * int64(unsafe.Sizeof(zero))
}
