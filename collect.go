package gcptr

import (
	"errors"
	"reflect"
	"time"
	"unsafe"

	"github.com/hupe1980/gcptr/alloc"
)

// Disposer is implemented by element types that hold resources, typically
// other Handles, which must be released before their storage is freed.
//
// The collector calls Dispose on every element of a block whose pointer type
// implements Disposer.
type Disposer interface {
	Dispose()
}

var disposerType = reflect.TypeFor[Disposer]()

// afterRelease consults the collect policy once a Handle let go of r.
func (t *Table) afterRelease(r *registry) {
	r.releases++
	state := RegistryState{
		Key:      r.key,
		Records:  r.size(),
		Releases: r.releases,
	}
	if t.policy.ShouldCollect(state) {
		// Failures are already logged and recorded by sweep.
		_, _ = t.sweep(r)
	}
}

// sweep frees every zero-count record of r, rescanning from the start after
// each removal. It returns the number of records removed.
//
// A sweep already running on r ignores nested requests; records released by
// disposers are picked up by the running scan.
func (t *Table) sweep(r *registry) (int, error) {
	if r.sweeping {
		return 0, nil
	}
	r.sweeping = true
	defer func() { r.sweeping = false }()

	start := time.Now()
	freed := 0

	var errs []error
	for {
		victim := r.firstUnreferenced()
		if victim == nil {
			break
		}
		r.remove(victim)
		freed++

		if victim.addr == nil {
			continue
		}
		if err := t.free(r, victim); err != nil {
			r.logger.LogFreeError(err)
			errs = append(errs, err)
		}
	}
	r.releases = 0

	err := errors.Join(errs...)
	t.metrics.RecordCollect(r.key.String(), freed, time.Since(start), err)
	r.logger.LogCollect(freed, r.size(), err)
	return freed, err
}

// free disposes and frees the block behind rec. A handle may have been set
// to a block of another length than its configuration, so the allocator's
// own length wins when it knows one.
func (t *Table) free(r *registry, rec *record) *FreeError {
	key := r.key
	n := key.Count()
	if m, ok := t.alloc.(alloc.Measurer); ok {
		if got, ok := m.BlockLen(rec.addr, key.Elem); ok && got != n {
			r.logger.LogBlockLen(rec.addr, n, got)
			n = got
		}
	}
	dispose(key.Elem, rec.addr, n)

	if err := t.alloc.Free(rec.addr, key.Elem, n); err != nil {
		return &FreeError{Key: key, Addr: uintptr(rec.addr), cause: err}
	}
	return nil
}

func dispose(elem reflect.Type, addr unsafe.Pointer, n int) {
	if !reflect.PointerTo(elem).Implements(disposerType) {
		return
	}
	size := elem.Size()
	for i := 0; i < n; i++ {
		p := unsafe.Add(addr, uintptr(i)*size)
		if d, ok := reflect.NewAt(elem, p).Interface().(Disposer); ok {
			d.Dispose()
		}
	}
}
