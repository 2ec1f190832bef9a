package gcptr

import (
	"cmp"
	"unsafe"
)

// Cursor walks the elements of a Handle's target. Moving a Cursor is never
// checked; reading through it is, against the range it was created for.
//
// A Cursor does not own its range. Reading after the allocation was
// collected is undefined.
type Cursor[T any] struct {
	base unsafe.Pointer
	n    int
	pos  int
}

func newCursor[T any](base unsafe.Pointer, n, pos int) Cursor[T] {
	return Cursor[T]{base: base, n: n, pos: pos}
}

// Value returns the element under the cursor.
func (c Cursor[T]) Value() (*T, error) {
	return c.Index(c.pos)
}

// Index returns the i-th element of the range, counted from its start.
func (c Cursor[T]) Index(i int) (*T, error) {
	if i < 0 || i >= c.n {
		return nil, &RangeError{Index: i, Len: c.n}
	}
	return &unsafe.Slice((*T)(c.base), c.n)[i], nil
}

// Inc moves the cursor forward and returns the moved cursor.
func (c *Cursor[T]) Inc() Cursor[T] {
	c.pos++
	return *c
}

// Dec moves the cursor back and returns the moved cursor.
func (c *Cursor[T]) Dec() Cursor[T] {
	c.pos--
	return *c
}

// PostInc moves the cursor forward and returns its previous state.
func (c *Cursor[T]) PostInc() Cursor[T] {
	prev := *c
	c.pos++
	return prev
}

// PostDec moves the cursor back and returns its previous state.
func (c *Cursor[T]) PostDec() Cursor[T] {
	prev := *c
	c.pos--
	return prev
}

// Add returns a cursor n elements further.
func (c Cursor[T]) Add(n int) Cursor[T] {
	c.pos += n
	return c
}

// Sub returns a cursor n elements back.
func (c Cursor[T]) Sub(n int) Cursor[T] {
	c.pos -= n
	return c
}

// Diff returns the signed distance c - o in elements.
func (c Cursor[T]) Diff(o Cursor[T]) int {
	if c.base == o.base {
		return c.pos - o.pos
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return c.pos - o.pos
	}
	return (c.offset() - o.offset()) / size
}

// Compare returns -1, 0 or +1 depending on whether c is before, at, or after o.
func (c Cursor[T]) Compare(o Cursor[T]) int {
	if c.base == o.base {
		return cmp.Compare(c.pos, o.pos)
	}
	return cmp.Compare(c.offset(), o.offset())
}

// Equal reports whether c and o address the same element.
func (c Cursor[T]) Equal(o Cursor[T]) bool { return c.Compare(o) == 0 }

// Less reports whether c is before o.
func (c Cursor[T]) Less(o Cursor[T]) bool { return c.Compare(o) < 0 }

// LessEqual reports whether c is before or at o.
func (c Cursor[T]) LessEqual(o Cursor[T]) bool { return c.Compare(o) <= 0 }

// Greater reports whether c is after o.
func (c Cursor[T]) Greater(o Cursor[T]) bool { return c.Compare(o) > 0 }

// GreaterEqual reports whether c is after or at o.
func (c Cursor[T]) GreaterEqual(o Cursor[T]) bool { return c.Compare(o) >= 0 }

// Position returns the cursor's index relative to the range start.
func (c Cursor[T]) Position() int { return c.pos }

// Size returns the number of elements in the range.
func (c Cursor[T]) Size() int { return c.n }

// Valid reports whether Value would succeed.
func (c Cursor[T]) Valid() bool { return c.pos >= 0 && c.pos < c.n }

// offset is the cursor's address as a signed byte offset.
func (c Cursor[T]) offset() int {
	var zero T
	return int(uintptr(c.base)) + c.pos*int(unsafe.Sizeof(zero))
}
