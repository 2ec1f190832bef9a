package gcptr

import (
	"errors"
	"unsafe"

	"github.com/hupe1980/gcptr/alloc"
)

// Table owns the registries of every handle configuration used with it and
// their shutdown hooks.
//
// A Table and the Handles built on it are not safe for concurrent use.
// Callers that share handles across goroutines must serialize access.
type Table struct {
	alloc   alloc.Allocator
	policy  CollectPolicy
	logger  *Logger
	metrics MetricsCollector

	registries map[Key]*registry
	hooks      []*registry // shutdown hooks, in scheduling order
	closed     bool
}

// NewTable creates an empty Table.
//
// Example:
//
//	t := gcptr.NewTable(gcptr.WithCollectPolicy(gcptr.CollectEvery(64)))
//	defer t.Close()
func NewTable(optFns ...Option) *Table {
	o := applyOptions(optFns)

	return &Table{
		alloc:      o.allocator,
		policy:     o.policy,
		logger:     o.logger,
		metrics:    o.metricsCollector,
		registries: make(map[Key]*registry),
	}
}

// Allocator returns the allocator backing the Table.
func (t *Table) Allocator() alloc.Allocator { return t.alloc }

// Logger returns the Table's logger.
func (t *Table) Logger() *Logger { return t.logger }

// registry returns the registry for key, creating it and scheduling its
// shutdown hook on first use.
func (t *Table) registry(key Key) *registry {
	if r, ok := t.registries[key]; ok {
		return r
	}
	r := newRegistry(key, t.logger)
	t.registries[key] = r
	t.hooks = append(t.hooks, r)
	r.logger.Debug("registry created")
	return r
}

// Keys returns the configurations that have a registry, in creation order.
func (t *Table) Keys() []Key {
	keys := make([]Key, 0, len(t.hooks))
	for _, r := range t.hooks {
		keys = append(keys, r.key)
	}
	return keys
}

// Size returns the number of records in the registry for key.
func (t *Table) Size(key Key) int {
	if r, ok := t.registries[key]; ok {
		return r.size()
	}
	return 0
}

// Records returns a snapshot of the registry for key, newest record first.
func (t *Table) Records(key Key) []RecordInfo {
	if r, ok := t.registries[key]; ok {
		return r.snapshot()
	}
	return nil
}

// RefCount returns the owner count recorded for addr under key, or 0 if the
// address is not registered.
func (t *Table) RefCount(key Key, addr unsafe.Pointer) int {
	r, ok := t.registries[key]
	if !ok {
		return 0
	}
	if rec, ok := r.find(addr); ok {
		return rec.refs
	}
	return 0
}

// Collect sweeps the registry for key and reports whether any record was
// freed. Free failures are logged and counted but do not change the result.
func (t *Table) Collect(key Key) bool {
	r, ok := t.registries[key]
	if !ok {
		return false
	}
	freed, _ := t.sweep(r)
	return freed > 0
}

// CollectAll sweeps every registry and reports whether any record was freed.
func (t *Table) CollectAll() bool {
	collected := false
	for _, r := range t.hooks {
		if freed, _ := t.sweep(r); freed > 0 {
			collected = true
		}
	}
	return collected
}

// Shutdown runs the shutdown hook for key: every owner count is forced to
// zero and the registry is swept, regardless of any Handle still targeting
// its records. Later calls return nil; records registered after the first
// call are left to Close.
func (t *Table) Shutdown(key Key) error {
	r, ok := t.registries[key]
	if !ok {
		return nil
	}
	return t.shutdown(r, false)
}

// shutdown runs the hook for r. Unless force is set it runs at most once.
func (t *Table) shutdown(r *registry, force bool) error {
	if r.shutdown && (!force || r.size() == 0) {
		return nil
	}
	r.shutdown = true

	leaked := 0
	for _, rec := range r.records {
		if rec.refs > 0 {
			leaked++
		}
		rec.refs = 0
	}

	freed, err := t.sweep(r)
	t.metrics.RecordShutdown(r.key.String(), freed, leaked, err)
	r.logger.LogShutdown(freed, leaked, err)
	return err
}

// Close runs the shutdown hook of every registry in scheduling order and
// marks the Table closed. Registries already shut down through Shutdown are
// swept again if records were added since. Go has no process-exit hook;
// defer Close in main.
//
// Close does not close the allocator.
func (t *Table) Close() error {
	t.closed = true

	var errs []error
	for _, r := range t.hooks {
		if err := t.shutdown(r, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Closed reports whether Close has been called.
func (t *Table) Closed() bool { return t.closed }
