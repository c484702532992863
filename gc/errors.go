package gc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeneration is returned for a generation outside [0, NumGenerations).
	ErrInvalidGeneration = errors.New("gc: invalid generation")
	// ErrPassAborted is returned when a pass could not reserve its scratch storage.
	// Nothing was freed and every object remains tracked.
	ErrPassAborted = errors.New("gc: collection pass aborted")
)

// FinalizerError reports a finalizer that returned an error or panicked during a collection.
// The collection continues; the error is logged and passed to Metrics.
type FinalizerError struct {
	Object Object
	Err    error
}

func (e *FinalizerError) Error() string {
	return fmt.Sprintf("gc: finalizer of %T failed: %v", e.Object, e.Err)
}

func (e *FinalizerError) Unwrap() error { return e.Err }
