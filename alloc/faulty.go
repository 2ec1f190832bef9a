package alloc

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// ErrInjected is the default error returned by Faulty.
var ErrInjected = errors.New("alloc: injected fault")

// Fault defines specific failure behavior.
type Fault struct {
	MaxLive         int64 // Fail allocations while this many blocks are live. 0 to disable.
	FailAfterAllocs int64 // Fail allocations after this many succeeded. 0 to disable.
	FailFrees       bool  // Refuse every free; the block stays allocated.
	Err             error // Cause wrapped into injected failures. Defaults to ErrInjected.
}

// Faulty is an Allocator wrapper that can inject errors.
type Faulty struct {
	Allocator Allocator

	mu     sync.Mutex
	fault  Fault
	allocs int64
	live   int64
}

var (
	_ Allocator = (*Faulty)(nil)
	_ Measurer  = (*Faulty)(nil)
)

// NewFaulty creates a Faulty wrapping a (or a new Heap if nil).
func NewFaulty(a Allocator) *Faulty {
	if a == nil {
		a = NewHeap()
	}
	return &Faulty{Allocator: a}
}

// SetFault replaces the active fault.
func (f *Faulty) SetFault(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fault = fault
}

func (f *Faulty) cause() error {
	if f.fault.Err != nil {
		return f.fault.Err
	}
	return ErrInjected
}

// Allocate implements Allocator.
func (f *Faulty) Allocate(elem reflect.Type, n int) (unsafe.Pointer, error) {
	f.mu.Lock()
	if f.fault.MaxLive > 0 && f.live >= f.fault.MaxLive {
		err := f.cause()
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %d live blocks: %w", ErrAllocationFailed, f.fault.MaxLive, err)
	}
	if f.fault.FailAfterAllocs > 0 && f.allocs >= f.fault.FailAfterAllocs {
		err := f.cause()
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: after %d allocations: %w", ErrAllocationFailed, f.allocs, err)
	}
	f.mu.Unlock()

	p, err := f.Allocator.Allocate(elem, n)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.allocs++
	f.live++
	f.mu.Unlock()
	return p, nil
}

// Free implements Allocator.
func (f *Faulty) Free(p unsafe.Pointer, elem reflect.Type, n int) error {
	f.mu.Lock()
	if f.fault.FailFrees {
		err := f.cause()
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	if err := f.Allocator.Free(p, elem, n); err != nil {
		return err
	}

	f.mu.Lock()
	f.live--
	f.mu.Unlock()
	return nil
}

// Live returns the number of blocks allocated through f and not yet freed.
func (f *Faulty) Live() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

// BlockLen implements Measurer by asking the wrapped allocator.
func (f *Faulty) BlockLen(p unsafe.Pointer, elem reflect.Type) (int, bool) {
	if m, ok := f.Allocator.(Measurer); ok {
		return m.BlockLen(p, elem)
	}
	return 0, false
}
