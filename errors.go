package cyclegc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/cyclegc/dynarray"
	"github.com/hupe1980/cyclegc/gc"
	"github.com/hupe1980/cyclegc/indexpool"
	"github.com/hupe1980/cyclegc/resource"
)

var (
	// ErrClosed is returned by a Runtime after Close.
	ErrClosed = errors.New("runtime closed")
	// ErrAllocation is returned when bookkeeping storage could not be reserved.
	// The operation had no effect.
	ErrAllocation = errors.New("allocation failed")
	// ErrInvalidGeneration is returned for a generation outside [0, gc.NumGenerations).
	ErrInvalidGeneration = errors.New("invalid generation")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gc.ErrInvalidGeneration) {
		return fmt.Errorf("%w: %w", ErrInvalidGeneration, err)
	}

	// Every way of running out of bookkeeping space surfaces as one error.
	if errors.Is(err, gc.ErrPassAborted) ||
		errors.Is(err, dynarray.ErrAllocation) ||
		errors.Is(err, indexpool.ErrAllocation) ||
		errors.Is(err, indexpool.ErrExhausted) ||
		errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	return err
}
