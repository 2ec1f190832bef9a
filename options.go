package gcptr

import (
	"log/slog"

	"github.com/hupe1980/gcptr/alloc"
)

type options struct {
	allocator        alloc.Allocator
	policy           CollectPolicy
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Table.
type Option func(*options)

// WithAllocator sets the allocator the Table allocates from and the collector
// frees to. Every address adopted by a Handle of this Table must come from it.
//
// If nil is passed, a heap allocator is used.
func WithAllocator(a alloc.Allocator) Option {
	return func(o *options) {
		if a == nil {
			a = alloc.NewHeap()
		}
		o.allocator = a
	}
}

// WithCollectPolicy decides when releasing a Handle triggers a sweep of its
// registry. The default is CollectEager.
func WithCollectPolicy(p CollectPolicy) Option {
	return func(o *options) {
		if p == nil {
			p = CollectEager()
		}
		o.policy = p
	}
}

// WithMetricsCollector sets a custom metrics collector for monitoring.
// Use this to integrate with Prometheus, Datadog, or other monitoring systems.
//
// Example:
//
//	mc := &gcptr.BasicMetricsCollector{}
//	t := gcptr.NewTable(gcptr.WithMetricsCollector(mc))
//	// ... use the table ...
//	stats := mc.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger sets a structured logger for the Table.
//
// Example:
//
//	logger := gcptr.NewJSONLogger(slog.LevelDebug)
//	t := gcptr.NewTable(gcptr.WithLogger(logger))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLogLevel is shorthand for a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}

	if o.allocator == nil {
		o.allocator = alloc.NewHeap()
	}
	if o.policy == nil {
		o.policy = CollectEager()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	return o
}
