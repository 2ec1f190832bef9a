package gcptr

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see the metrics/prometheus package for a ready-made adapter.
type MetricsCollector interface {
	// RecordAllocation is called after each typed allocation through a Table.
	// bytes is the requested block size, err is nil if successful.
	RecordAllocation(key string, bytes int, err error)

	// RecordCollect is called after each collection sweep.
	// freed is the number of records removed, duration is the sweep time.
	RecordCollect(key string, freed int, duration time.Duration, err error)

	// RecordShutdown is called after a registry's shutdown hook ran.
	// leaked counts the records that still had owners.
	RecordShutdown(key string, freed, leaked int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAllocation(string, int, error)             {}
func (NoopMetricsCollector) RecordCollect(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordShutdown(string, int, int, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount       atomic.Int64
	AllocErrors      atomic.Int64
	AllocBytes       atomic.Int64
	CollectCount     atomic.Int64
	CollectErrors    atomic.Int64
	CollectFreed     atomic.Int64
	CollectNanos     atomic.Int64
	ShutdownCount    atomic.Int64
	ShutdownFreed    atomic.Int64
	ShutdownLeaked   atomic.Int64
	ShutdownFailures atomic.Int64
}

// RecordAllocation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocation(_ string, bytes int, err error) {
	b.AllocCount.Add(1)
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(bytes))
}

// RecordCollect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCollect(_ string, freed int, duration time.Duration, err error) {
	b.CollectCount.Add(1)
	b.CollectFreed.Add(int64(freed))
	b.CollectNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CollectErrors.Add(1)
	}
}

// RecordShutdown implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShutdown(_ string, freed, leaked int, err error) {
	b.ShutdownCount.Add(1)
	b.ShutdownFreed.Add(int64(freed))
	b.ShutdownLeaked.Add(int64(leaked))
	if err != nil {
		b.ShutdownFailures.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:       b.AllocCount.Load(),
		AllocErrors:      b.AllocErrors.Load(),
		AllocBytes:       b.AllocBytes.Load(),
		CollectCount:     b.CollectCount.Load(),
		CollectErrors:    b.CollectErrors.Load(),
		CollectFreed:     b.CollectFreed.Load(),
		CollectAvgNanos:  b.getAvgCollectNanos(),
		ShutdownCount:    b.ShutdownCount.Load(),
		ShutdownFreed:    b.ShutdownFreed.Load(),
		ShutdownLeaked:   b.ShutdownLeaked.Load(),
		ShutdownFailures: b.ShutdownFailures.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgCollectNanos() int64 {
	count := b.CollectCount.Load()
	if count == 0 {
		return 0
	}
	return b.CollectNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount       int64
	AllocErrors      int64
	AllocBytes       int64
	CollectCount     int64
	CollectErrors    int64
	CollectFreed     int64
	CollectAvgNanos  int64
	ShutdownCount    int64
	ShutdownFreed    int64
	ShutdownLeaked   int64
	ShutdownFailures int64
}
