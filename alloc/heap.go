package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/hupe1980/gcptr/resource"
)

// Heap allocates typed blocks on the Go heap.
//
// A block stays reachable through the allocator until it is freed, so the
// garbage collector never reclaims storage a registry still tracks. Free
// clears the block, dropping any Go pointers it held, and unpins it.
type Heap struct {
	mu   sync.Mutex
	pins map[unsafe.Pointer]reflect.Value

	rc    *resource.Controller
	stats counters
}

var (
	_ Allocator = (*Heap)(nil)
	_ Measurer  = (*Heap)(nil)
)

// NewHeap creates a Go heap allocator.
func NewHeap(optFns ...Option) *Heap {
	o := applyOptions(optFns)
	return &Heap{
		pins: make(map[unsafe.Pointer]reflect.Value),
		rc:   o.controller,
	}
}

// Allocate implements Allocator.
func (h *Heap) Allocate(elem reflect.Type, n int) (unsafe.Pointer, error) {
	size, err := blockSize(elem, n)
	if err != nil {
		return nil, err
	}

	if err := h.rc.AcquireMemory(int64(size)); err != nil {
		h.stats.failed()
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAllocationFailed, size, err)
	}

	v := reflect.New(blockType(elem, n))
	p := v.UnsafePointer()

	h.mu.Lock()
	h.pins[p] = v
	h.mu.Unlock()

	h.stats.allocated(size)
	return p, nil
}

// Free implements Allocator. The pinned block at p is released in full,
// whatever n says.
func (h *Heap) Free(p unsafe.Pointer, elem reflect.Type, n int) error {
	if _, err := blockSize(elem, n); err != nil {
		return err
	}

	h.mu.Lock()
	v, ok := h.pins[p]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %p", ErrUnknownBlock, p)
	}
	if _, ok := blockLen(v.Type().Elem(), elem); !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: block %p holds %s, not %s", ErrInvalidType, p, v.Type().Elem(), elem)
	}
	delete(h.pins, p)
	h.mu.Unlock()

	size := int(v.Type().Elem().Size())
	v.Elem().SetZero()
	h.rc.ReleaseMemory(int64(size))
	h.stats.freed(size)
	return nil
}

// BlockLen implements Measurer.
func (h *Heap) BlockLen(p unsafe.Pointer, elem reflect.Type) (int, bool) {
	h.mu.Lock()
	v, ok := h.pins[p]
	h.mu.Unlock()
	if !ok {
		return 0, false
	}
	return blockLen(v.Type().Elem(), elem)
}

// Stats returns a snapshot of allocator activity.
func (h *Heap) Stats() Stats {
	return h.stats.snapshot()
}

func blockType(elem reflect.Type, n int) reflect.Type {
	if n > 1 {
		return reflect.ArrayOf(n, elem)
	}
	return elem
}

// blockLen inverts blockType: the element count of a block of type bt.
func blockLen(bt, elem reflect.Type) (int, bool) {
	switch {
	case bt == elem:
		return 1, true
	case bt.Kind() == reflect.Array && bt.Elem() == elem:
		return bt.Len(), true
	default:
		return 0, false
	}
}
