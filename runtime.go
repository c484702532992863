package cyclegc

import (
	"context"
	"io"
	"sync"

	"github.com/hupe1980/cyclegc/census"
	"github.com/hupe1980/cyclegc/gc"
	"github.com/hupe1980/cyclegc/indexpool"
	"github.com/hupe1980/cyclegc/resource"
)

// Runtime owns one cycle collector, the thread slot pool and the resource controller
// both are charged to. All collector entry points are serialised, so a Runtime may be
// shared between goroutines.
type Runtime struct {
	mu        sync.Mutex
	collector *gc.Collector
	threads   *indexpool.Pool
	rc        *resource.Controller
	logger    *Logger
	metrics   MetricsCollector
	closed    bool
}

// New creates a Runtime.
func New(optFns ...Option) (*Runtime, error) {
	o := applyOptions(optFns)

	gcOpts := append([]gc.Option{
		gc.WithLogger(o.logger.Logger),
		gc.WithMetrics(o.metricsCollector),
		gc.WithMemoryAcquirer(o.controller),
	}, o.collector...)

	return &Runtime{
		collector: gc.New(gcOpts...),
		threads:   indexpool.New(indexpool.WithMemoryAcquirer(o.controller)),
		rc:        o.controller,
		logger:    o.logger,
		metrics:   o.metricsCollector,
	}, nil
}

// Track registers obj with the youngest generation.
func (r *Runtime) Track(obj gc.Object) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.collector.Track(obj)
	return nil
}

// Untrack removes obj from collector bookkeeping.
func (r *Runtime) Untrack(obj gc.Object) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.collector.Untrack(obj)
	return nil
}

// MaybeCollect counts one allocation and collects if a threshold is exceeded.
func (r *Runtime) MaybeCollect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.collector.MaybeCollect()
	return nil
}

// CollectGeneration collects generations 0..gen.
func (r *Runtime) CollectGeneration(ctx context.Context, gen int) (gc.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return gc.Stats{}, ErrClosed
	}

	stats, err := r.collector.CollectGeneration(gen)
	err = translateError(err)
	r.logger.LogCollection(ctx, gen, stats, err)
	return stats, err
}

// Collect runs a full collection.
func (r *Runtime) Collect(ctx context.Context) (gc.Stats, error) {
	return r.CollectGeneration(ctx, gc.NumGenerations-1)
}

// Freeze moves every tracked object into the permanent generation.
func (r *Runtime) Freeze() error {
	return r.Do(func(c *gc.Collector) { c.Freeze() })
}

// Unfreeze moves the permanent generation back into the oldest generation.
func (r *Runtime) Unfreeze() error {
	return r.Do(func(c *gc.Collector) { c.Unfreeze() })
}

// Garbage returns a snapshot of the objects found uncollectable.
func (r *Runtime) Garbage() []gc.Object {
	var out []gc.Object
	_ = r.Do(func(c *gc.Collector) { out = c.Garbage() })
	return out
}

// ClearGarbage empties the garbage list and returns its former contents.
func (r *Runtime) ClearGarbage() []gc.Object {
	var out []gc.Object
	_ = r.Do(func(c *gc.Collector) { out = c.ClearGarbage() })
	return out
}

// Do runs fn with exclusive access to the collector. fn must not retain c.
func (r *Runtime) Do(fn func(c *gc.Collector)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	fn(r.collector)
	return nil
}

// Census captures the collector's state.
func (r *Runtime) Census() (*census.Census, error) {
	var cen *census.Census
	if err := r.Do(func(c *gc.Collector) { cen = census.Take(c) }); err != nil {
		return nil, err
	}
	return cen, nil
}

// WriteCensus captures the collector's state and writes it to w. The write holds a
// background slot of the runtime's controller and honours its IO limit; the collector
// lock is only held while the census is taken.
func (r *Runtime) WriteCensus(ctx context.Context, w io.Writer, opts ...census.Option) error {
	cen, err := r.Census()
	if err != nil {
		return err
	}

	opts = append([]census.Option{census.WithController(r.rc)}, opts...)
	err = census.Write(ctx, w, cen, opts...)
	r.logger.LogCensus(ctx, cen.Tracked(), err)
	return err
}

// Resources returns the runtime's resource controller.
func (r *Runtime) Resources() *resource.Controller { return r.rc }

// Close releases the thread slot pool. Attached threads must have detached.
// Close is idempotent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.threads.Dispose()
	return nil
}
