package alloc

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/gcptr/internal/conv"
	"github.com/hupe1980/gcptr/resource"
)

var (
	// ErrAllocationFailed is returned when storage cannot be obtained.
	ErrAllocationFailed = errors.New("allocation failed")
	// ErrInvalidType is returned for element types an allocator cannot serve.
	ErrInvalidType = errors.New("alloc: invalid element type")
	// ErrInvalidCount is returned for non-positive element counts.
	ErrInvalidCount = errors.New("alloc: invalid element count")
	// ErrUnknownBlock is returned when freeing a block the allocator did not hand out.
	ErrUnknownBlock = errors.New("alloc: unknown block")
	// ErrClosed is returned when using an allocator after Close.
	ErrClosed = errors.New("alloc: allocator is closed")
)

// Allocator is the raw allocation facility.
//
// Allocate returns the address of n contiguous zeroed elements of type elem.
// Free releases the whole block Allocate returned at p. The element type must
// match; n is the caller's view of the block length and does not limit what
// is released.
type Allocator interface {
	Allocate(elem reflect.Type, n int) (unsafe.Pointer, error)
	Free(p unsafe.Pointer, elem reflect.Type, n int) error
}

// Measurer is implemented by allocators that remember how many elements each
// live block holds.
type Measurer interface {
	// BlockLen returns the element count of the live block at p, or false if
	// p is unknown or was allocated for another element type.
	BlockLen(p unsafe.Pointer, elem reflect.Type) (int, bool)
}

// Stats is a snapshot of allocator activity.
type Stats struct {
	Allocs     int64 // successful allocations
	Failures   int64 // allocations that failed with ErrAllocationFailed
	Frees      int64 // successful frees
	LiveBlocks int64 // blocks currently handed out
	LiveBytes  int64 // bytes currently handed out
}

type counters struct {
	allocs     atomic.Int64
	failures   atomic.Int64
	frees      atomic.Int64
	liveBlocks atomic.Int64
	liveBytes  atomic.Int64
}

func (c *counters) allocated(size int) {
	c.allocs.Add(1)
	c.liveBlocks.Add(1)
	c.liveBytes.Add(int64(size))
}

func (c *counters) freed(size int) {
	c.frees.Add(1)
	c.liveBlocks.Add(-1)
	c.liveBytes.Add(-int64(size))
}

func (c *counters) failed() {
	c.failures.Add(1)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Allocs:     c.allocs.Load(),
		Failures:   c.failures.Load(),
		Frees:      c.frees.Load(),
		LiveBlocks: c.liveBlocks.Load(),
		LiveBytes:  c.liveBytes.Load(),
	}
}

type options struct {
	controller *resource.Controller
	chunkSize  int
	alignment  int
}

// Option configures an allocator.
type Option func(*options)

// WithController charges every allocation against a memory budget.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithChunkSize sets the chunk size of an Arena. Other allocators ignore it.
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithAlignment sets the block alignment of an Arena, a power of two. Element
// types needing more are rejected. Other allocators ignore it.
func WithAlignment(align int) Option {
	return func(o *options) {
		o.alignment = align
	}
}

func applyOptions(optFns []Option) options {
	var o options
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// blockSize validates a request and returns its size in bytes.
func blockSize(elem reflect.Type, n int) (int, error) {
	if elem == nil {
		return 0, fmt.Errorf("%w: nil type", ErrInvalidType)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if elem.Size() == 0 {
		// Zero-size values share one address and cannot be told apart.
		return 0, fmt.Errorf("%w: %s has zero size", ErrInvalidType, elem)
	}
	size, err := conv.ByteSize(n, elem.Size())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}
	return size, nil
}

// requirePointerFree rejects element types that hold Go pointers. Off-heap
// memory is invisible to the garbage collector.
func requirePointerFree(elem reflect.Type) error {
	if HasPointers(elem) {
		return fmt.Errorf("%w: %s contains Go pointers and cannot live off-heap", ErrInvalidType, elem)
	}
	return nil
}

// HasPointers reports whether values of type t contain Go pointers.
func HasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && HasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if HasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
