package cyclegc

import (
	"log/slog"

	"github.com/hupe1980/cyclegc/gc"
	"github.com/hupe1980/cyclegc/resource"
)

type options struct {
	collector        []gc.Option
	metricsCollector MetricsCollector
	logger           *Logger
	resourceConfig   resource.Config
	controller       *resource.Controller
}

// Option configures a Runtime.
type Option func(*options)

// WithThresholds sets the collector's generation thresholds.
// A zero t0 disables automatic collection.
func WithThresholds(t0, t1, t2 int) Option {
	return func(o *options) {
		o.collector = append(o.collector, gc.WithThresholds(t0, t1, t2))
	}
}

// WithAutomaticCollection turns MaybeCollect-driven collection on or off.
func WithAutomaticCollection(enabled bool) Option {
	return func(o *options) {
		o.collector = append(o.collector, gc.WithEnabled(enabled))
	}
}

// WithDebug sets the collector's debug flags.
//
// Example hunting a leak:
//
//	rt, _ := cyclegc.New(cyclegc.WithDebug(gc.DebugLeak))
//	rt.Collect(ctx)
//	for _, o := range rt.Garbage() { ... }
func WithDebug(flags gc.DebugFlags) Option {
	return func(o *options) {
		o.collector = append(o.collector, gc.WithDebug(flags))
	}
}

// WithDebugLogRate caps DebugStats output to perSecond lines.
func WithDebugLogRate(perSecond float64) Option {
	return func(o *options) {
		o.collector = append(o.collector, gc.WithDebugLogRate(perSecond))
	}
}

// WithFinalizerPolicy selects how cyclic trash with finalizers is handled.
func WithFinalizerPolicy(p gc.FinalizerPolicy) Option {
	return func(o *options) {
		o.collector = append(o.collector, gc.WithFinalizerPolicy(p))
	}
}

// WithTrashLimit sets the nesting depth beyond which destruction is deferred.
func WithTrashLimit(limit int) Option {
	return func(o *options) {
		o.collector = append(o.collector, gc.WithTrashLimit(limit))
	}
}

// WithResourceConfig creates a resource.Controller for the runtime from cfg.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceConfig = cfg
		o.controller = nil
	}
}

// WithResourceController shares an existing controller, for example between several
// runtimes that draw from one memory budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &cyclegc.BasicMetricsCollector{}
//	rt, _ := cyclegc.New(cyclegc.WithMetricsCollector(metrics))
//	// ... use rt ...
//	stats := metrics.GetStats()
//	fmt.Printf("Collected: %d, Avg pass: %dns\n", stats.Collected, stats.CollectAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.controller == nil {
		o.controller = resource.NewController(o.resourceConfig)
	}
	return o
}
