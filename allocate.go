package gcptr

import (
	"fmt"

	"github.com/hupe1980/gcptr/internal/conv"
)

// Alloc returns a zeroed T from the Table's allocator. The result is not
// owned by any Handle until one adopts it.
//
// Allocation failures are returned as is; they wrap ErrAllocationFailed.
// Callers may Collect and retry.
func Alloc[T any](t *Table) (*T, error) {
	return allocate[T](t, KeyOf[T](0))
}

// AllocArray returns the first element of a zeroed block of n elements of T.
func AllocArray[T any](t *Table, n int) (*T, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	return allocate[T](t, KeyOf[T](n))
}

func allocate[T any](t *Table, key Key) (*T, error) {
	bytes, err := conv.ByteSize(key.Count(), key.Elem.Size())
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrAllocationFailed, key, err)
		t.metrics.RecordAllocation(key.String(), 0, err)
		t.logger.LogAllocation(key, 0, err)
		return nil, err
	}
	if t.closed {
		t.metrics.RecordAllocation(key.String(), bytes, ErrTableClosed)
		return nil, ErrTableClosed
	}

	p, err := t.alloc.Allocate(key.Elem, key.Count())
	t.metrics.RecordAllocation(key.String(), bytes, err)
	t.logger.LogAllocation(key, bytes, err)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}
