// Package prometheus exports gcptr metrics through prometheus/client_golang.
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/gcptr"
)

var _ gcptr.MetricsCollector = (*Collector)(nil)

// Collector implements gcptr.MetricsCollector with Prometheus counters and a
// sweep latency histogram, labelled by handle configuration.
type Collector struct {
	allocations    *prom.CounterVec
	allocatedBytes *prom.CounterVec
	collections    *prom.CounterVec
	freed          *prom.CounterVec
	collectLatency *prom.HistogramVec
	shutdownLeaked *prom.CounterVec
}

// New creates a Collector and registers it with reg. A nil reg uses
// prom.DefaultRegisterer.
func New(reg prom.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	c := &Collector{
		allocations: prom.NewCounterVec(prom.CounterOpts{
			Name: "gcptr_allocations_total",
			Help: "Typed allocations through a table",
		}, []string{"key", "status"}),
		allocatedBytes: prom.NewCounterVec(prom.CounterOpts{
			Name: "gcptr_allocated_bytes_total",
			Help: "Bytes handed out by successful allocations",
		}, []string{"key"}),
		collections: prom.NewCounterVec(prom.CounterOpts{
			Name: "gcptr_collections_total",
			Help: "Registry sweeps",
		}, []string{"key", "status"}),
		freed: prom.NewCounterVec(prom.CounterOpts{
			Name: "gcptr_freed_records_total",
			Help: "Records removed by sweeps, including shutdown",
		}, []string{"key"}),
		collectLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "gcptr_collect_duration_seconds",
			Help:    "Latency of registry sweeps",
			Buckets: prom.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"key"}),
		shutdownLeaked: prom.NewCounterVec(prom.CounterOpts{
			Name: "gcptr_shutdown_referenced_records_total",
			Help: "Records still owned by handles when their registry shut down",
		}, []string{"key"}),
	}

	for _, col := range []prom.Collector{
		c.allocations,
		c.allocatedBytes,
		c.collections,
		c.freed,
		c.collectLatency,
		c.shutdownLeaked,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAllocation implements gcptr.MetricsCollector.
func (c *Collector) RecordAllocation(key string, bytes int, err error) {
	c.allocations.WithLabelValues(key, status(err)).Inc()
	if err == nil {
		c.allocatedBytes.WithLabelValues(key).Add(float64(bytes))
	}
}

// RecordCollect implements gcptr.MetricsCollector.
func (c *Collector) RecordCollect(key string, freed int, d time.Duration, err error) {
	c.collections.WithLabelValues(key, status(err)).Inc()
	c.freed.WithLabelValues(key).Add(float64(freed))
	c.collectLatency.WithLabelValues(key).Observe(d.Seconds())
}

// RecordShutdown implements gcptr.MetricsCollector.
//
// Freed records are already counted by the sweep the shutdown ran.
func (c *Collector) RecordShutdown(key string, _, leaked int, _ error) {
	c.shutdownLeaked.WithLabelValues(key).Add(float64(leaked))
}
