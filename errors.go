package gcptr

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gcptr/alloc"
)

var (
	// ErrAllocationFailed is returned when the allocator cannot provide storage.
	// The library never intercepts it; recover by collecting and retrying.
	ErrAllocationFailed = alloc.ErrAllocationFailed

	// ErrOutOfRange is returned when a Cursor access falls outside its range.
	ErrOutOfRange = errors.New("gcptr: access out of range")

	// ErrInvalidLength is returned for array configurations with a non-positive length.
	ErrInvalidLength = errors.New("gcptr: invalid array length")

	// ErrTableClosed is returned when allocating through a closed Table.
	ErrTableClosed = errors.New("gcptr: table is closed")
)

// RangeError describes an out-of-range Cursor access.
//
// It unwraps to ErrOutOfRange.
type RangeError struct {
	Index int // offending position relative to the range start
	Len   int // number of elements in the range
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("gcptr: index %d out of range [0:%d]", e.Index, e.Len)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// FreeError reports a block the collector removed from its registry but
// could not return to the allocator.
//
// The allocator error can be accessed via errors.Unwrap.
type FreeError struct {
	Key   Key
	Addr  uintptr
	cause error
}

func (e *FreeError) Error() string {
	return fmt.Sprintf("gcptr: free %s block %#x: %v", e.Key, e.Addr, e.cause)
}

func (e *FreeError) Unwrap() error { return e.cause }
