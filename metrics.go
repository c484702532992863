package cyclegc

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/cyclegc/gc"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Every MetricsCollector is also a gc.Metrics and receives the collector's per-pass
// measurements directly.
type MetricsCollector interface {
	gc.Metrics

	// RecordThreadAttach is called after each AttachThread.
	// err is nil if a slot was assigned.
	RecordThreadAttach(err error)

	// RecordThreadDetach is called after each Detach.
	RecordThreadDetach()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCollection(int, gc.Stats, time.Duration) {}
func (NoopMetricsCollector) RecordFinalizerError(error)                    {}
func (NoopMetricsCollector) RecordAbortedPass(int, error)                  {}
func (NoopMetricsCollector) RecordThreadAttach(error)                      {}
func (NoopMetricsCollector) RecordThreadDetach()                           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	Collections       [gc.NumGenerations]atomic.Int64
	Collected         atomic.Int64
	Uncollectable     atomic.Int64
	CollectTotalNanos atomic.Int64
	FinalizerErrors   atomic.Int64
	AbortedPasses     atomic.Int64
	ThreadAttaches    atomic.Int64
	ThreadAttachFails atomic.Int64
	ThreadDetaches    atomic.Int64
}

// RecordCollection implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCollection(gen int, stats gc.Stats, duration time.Duration) {
	if gen >= 0 && gen < gc.NumGenerations {
		b.Collections[gen].Add(1)
	}
	b.Collected.Add(int64(stats.Collected))
	b.Uncollectable.Add(int64(stats.Uncollectable))
	b.CollectTotalNanos.Add(duration.Nanoseconds())
}

// RecordFinalizerError implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFinalizerError(error) {
	b.FinalizerErrors.Add(1)
}

// RecordAbortedPass implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAbortedPass(int, error) {
	b.AbortedPasses.Add(1)
}

// RecordThreadAttach implements MetricsCollector.
func (b *BasicMetricsCollector) RecordThreadAttach(err error) {
	if err != nil {
		b.ThreadAttachFails.Add(1)
		return
	}
	b.ThreadAttaches.Add(1)
}

// RecordThreadDetach implements MetricsCollector.
func (b *BasicMetricsCollector) RecordThreadDetach() {
	b.ThreadDetaches.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Collected:         b.Collected.Load(),
		Uncollectable:     b.Uncollectable.Load(),
		FinalizerErrors:   b.FinalizerErrors.Load(),
		AbortedPasses:     b.AbortedPasses.Load(),
		ThreadAttaches:    b.ThreadAttaches.Load(),
		ThreadAttachFails: b.ThreadAttachFails.Load(),
		ThreadDetaches:    b.ThreadDetaches.Load(),
	}
	var passes int64
	for i := range b.Collections {
		s.Collections[i] = b.Collections[i].Load()
		passes += s.Collections[i]
	}
	if passes > 0 {
		s.CollectAvgNanos = b.CollectTotalNanos.Load() / passes
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Collections       [gc.NumGenerations]int64
	Collected         int64
	Uncollectable     int64
	CollectAvgNanos   int64
	FinalizerErrors   int64
	AbortedPasses     int64
	ThreadAttaches    int64
	ThreadAttachFails int64
	ThreadDetaches    int64
}

// ActiveThreads returns attaches minus detaches.
func (s BasicMetricsStats) ActiveThreads() int64 {
	return s.ThreadAttaches - s.ThreadDetaches
}
