// Package resource implements the Controller that bounds the memory, background work and
// IO the lifecycle core may consume.
//
// The Controller covers three resource types:
//
//   - Memory: a hard byte budget for auxiliary bookkeeping (fail-fast, never blocks)
//   - Background: a cap on concurrent background jobs such as census dumps
//   - IO: a token bucket limiting how fast census output is written
//
// # Memory Budget
//
// Growable structures (dynarray.Array, indexpool.Pool, the collector's mark stack) charge
// their growth against the budget. When the budget is exhausted AcquireMemory returns
// ErrMemoryLimitExceeded immediately and the caller surfaces an allocation error:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	pool := indexpool.New(indexpool.WithMemoryAcquirer(rc))
//	idx, err := pool.Alloc() // fails once the budget is spent
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional limiting without nil checks everywhere.
package resource
