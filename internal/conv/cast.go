package conv

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrOverflow is returned when a conversion or product does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// ByteSize returns count*elemSize as an int, failing on negative counts and
// on products that overflow.
func ByteSize(count int, elemSize uintptr) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: negative element count %d", ErrOverflow, count)
	}
	hi, lo := bits.Mul64(uint64(count), uint64(elemSize))
	if hi != 0 || lo > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d elements of %d bytes", ErrOverflow, count, elemSize)
	}
	return int(lo), nil
}

// AlignUp rounds v up to a multiple of align, which must be a power of two.
func AlignUp(v, align int) int {
	mask := align - 1
	return (v + mask) &^ mask
}
