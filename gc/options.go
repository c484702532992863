package gc

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hupe1980/cyclegc/dynarray"
)

// Default thresholds for generations 0, 1 and 2.
const (
	DefaultThreshold0 = 700
	DefaultThreshold1 = 10
	DefaultThreshold2 = 10
)

// DebugFlags select extra reporting.
type DebugFlags uint8

const (
	// DebugStats logs a summary of every pass.
	DebugStats DebugFlags = 1 << iota
	// DebugCollectable logs every collectable object found.
	DebugCollectable
	// DebugUncollectable logs every object moved to the garbage list.
	DebugUncollectable
	// DebugSaveAll keeps every unreachable object on the garbage list instead of clearing it.
	DebugSaveAll

	// DebugLeak is the combination used to hunt leaks.
	DebugLeak = DebugCollectable | DebugUncollectable | DebugSaveAll
)

// FinalizerPolicy decides what happens to cyclic trash that has finalizers.
type FinalizerPolicy uint8

const (
	// FinalizeThenCheck runs each finalizer once, then treats any resurrected object, and
	// everything reachable from it, as uncollectable.
	FinalizeThenCheck FinalizerPolicy = iota
	// QuarantineFinalizers never runs finalizers on cyclic trash. Finalizable trash, and
	// everything reachable from it, is uncollectable.
	QuarantineFinalizers
)

// Option configures a Collector.
type Option func(*options)

type options struct {
	thresholds [NumGenerations]int
	enabled    bool
	debug      DebugFlags
	policy     FinalizerPolicy
	logger     *slog.Logger
	metrics    Metrics
	acquirer   dynarray.MemoryAcquirer
	trashLimit int
	debugRate  rate.Limit
}

func defaultOptions() options {
	return options{
		thresholds: [NumGenerations]int{DefaultThreshold0, DefaultThreshold1, DefaultThreshold2},
		enabled:    true,
		logger:     slog.New(slog.DiscardHandler),
		metrics:    noopMetrics{},
		debugRate:  rate.Inf,
	}
}

// WithThresholds sets the generation thresholds. A zero threshold0 disables automatic
// collection.
func WithThresholds(t0, t1, t2 int) Option {
	return func(o *options) {
		o.thresholds = [NumGenerations]int{t0, t1, t2}
	}
}

// WithEnabled turns automatic collection on or off.
func WithEnabled(enabled bool) Option {
	return func(o *options) {
		o.enabled = enabled
	}
}

// WithDebug sets the debug flags.
func WithDebug(flags DebugFlags) Option {
	return func(o *options) {
		o.debug = flags
	}
}

// WithFinalizerPolicy selects how finalizable cyclic trash is handled.
func WithFinalizerPolicy(p FinalizerPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLogger sets the logger. Nil keeps the discarding default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. Nil keeps the no-op default.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMemoryAcquirer charges each pass's scratch storage to acquirer. A pass whose scratch
// cannot be reserved is aborted with ErrPassAborted.
func WithMemoryAcquirer(a dynarray.MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = a
	}
}

// WithTrashLimit sets the nesting limit of the collector's trash stack.
func WithTrashLimit(limit int) Option {
	return func(o *options) {
		o.trashLimit = limit
	}
}

// WithDebugLogRate caps DebugStats output to perSecond lines. Zero or less means unlimited.
func WithDebugLogRate(perSecond float64) Option {
	return func(o *options) {
		if perSecond > 0 {
			o.debugRate = rate.Limit(perSecond)
		} else {
			o.debugRate = rate.Inf
		}
	}
}
