package gcptr

import (
	"fmt"
	"iter"
	"unsafe"
)

// Handle is a counted reference to an allocation of T, or of a fixed-length
// array of T. Every Handle targeting an address is one owner in the record
// for that address; the collector frees an allocation once it has none.
//
// Handles must be released explicitly. A Handle is not safe for concurrent
// use.
type Handle[T any] struct {
	table    *Table
	reg      *registry
	addr     unsafe.Pointer
	kind     Kind
	length   int
	released bool
}

// New returns a Handle to the scalar configuration of T targeting p.
// If p is already registered its owner count is incremented, otherwise it is
// registered with a single owner. A nil p yields an empty handle.
//
// p must have been obtained from the Table's allocator.
func New[T any](t *Table, p *T) *Handle[T] {
	return newHandle[T](t, KeyOf[T](0), unsafe.Pointer(p))
}

// NewArray returns a Handle to the array configuration of T with the given
// length, targeting the first element p. It panics if length is not positive.
func NewArray[T any](t *Table, length int, p *T) *Handle[T] {
	if length <= 0 {
		panic(fmt.Errorf("%w: %d", ErrInvalidLength, length))
	}
	return newHandle[T](t, KeyOf[T](length), unsafe.Pointer(p))
}

func newHandle[T any](t *Table, key Key, addr unsafe.Pointer) *Handle[T] {
	r := t.registry(key)
	r.acquire(addr)

	h := &Handle[T]{
		table:  t,
		reg:    r,
		addr:   addr,
		kind:   key.Kind(),
		length: key.Length,
	}
	r.logger.LogHandle("constructed", addr, h.RefCount())
	return h
}

// Make allocates a zeroed T through the Table's allocator and returns a
// Handle owning it.
func Make[T any](t *Table) (*Handle[T], error) {
	p, err := Alloc[T](t)
	if err != nil {
		return nil, err
	}
	return New(t, p), nil
}

// MakeArray allocates a zeroed array of length elements of T and returns a
// Handle owning it.
func MakeArray[T any](t *Table, length int) (*Handle[T], error) {
	p, err := AllocArray[T](t, length)
	if err != nil {
		return nil, err
	}
	return NewArray(t, length, p), nil
}

func (h *Handle[T]) mustBeLive() {
	if h.released {
		panic("gcptr: use of released handle")
	}
}

// Clone returns a new Handle sharing h's target and adds one owner to it.
// It panics if the target is not registered.
func (h *Handle[T]) Clone() *Handle[T] {
	h.mustBeLive()

	if h.addr != nil {
		rec, ok := h.reg.find(h.addr)
		if !ok {
			panic(fmt.Sprintf("gcptr: clone of unregistered %s address %p", h.reg.key, h.addr))
		}
		rec.refs++
	}

	c := &Handle[T]{
		table:  h.table,
		reg:    h.reg,
		addr:   h.addr,
		kind:   h.kind,
		length: h.length,
	}
	h.reg.logger.LogHandle("cloned", c.addr, c.RefCount())
	return c
}

// Set retargets h to p: the current target loses an owner, p gains one (and
// is registered if it is new). It returns p.
//
// Set never triggers a sweep; the previous target is reclaimed by a later
// collection.
func (h *Handle[T]) Set(p *T) *T {
	h.mustBeLive()

	addr := unsafe.Pointer(p)
	h.reg.release(h.addr)
	h.reg.acquire(addr)
	h.addr = addr

	h.reg.logger.LogHandle("set", addr, h.RefCount())
	return p
}

// Assign retargets h to o's target. Both handles must belong to the same
// configuration and o's target must be registered; Assign panics otherwise.
func (h *Handle[T]) Assign(o *Handle[T]) *Handle[T] {
	h.mustBeLive()
	o.mustBeLive()

	if h.reg != o.reg {
		panic(fmt.Sprintf("gcptr: assign across configurations %s and %s", h.reg.key, o.reg.key))
	}

	var rec *record
	if o.addr != nil {
		var ok bool
		if rec, ok = o.reg.find(o.addr); !ok {
			panic(fmt.Sprintf("gcptr: assign from unregistered %s address %p", o.reg.key, o.addr))
		}
	}

	h.reg.release(h.addr)
	if rec != nil {
		rec.refs++
	}
	h.addr = o.addr
	h.kind = o.kind
	h.length = o.length

	h.reg.logger.LogHandle("assigned", h.addr, h.RefCount())
	return h
}

// Release drops h's ownership of its target and lets the Table's collect
// policy decide whether to sweep. Releasing twice is a no-op, as is releasing
// a nil Handle.
//
// A sweep started by the policy reports free failures only through the
// Table's logger and MetricsCollector. The blocks stay unfreed; Close and
// Shutdown return such errors.
func (h *Handle[T]) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true

	h.reg.release(h.addr)
	h.reg.logger.LogHandle("released", h.addr, h.RefCount())
	h.addr = nil

	h.table.afterRelease(h.reg)
}

// Collect sweeps the registry of h's configuration.
func (h *Handle[T]) Collect() bool {
	return h.table.Collect(h.reg.key)
}

// Value returns the target. It is nil for an empty handle.
func (h *Handle[T]) Value() *T {
	return (*T)(h.addr)
}

// At returns the i-th element of the target. Indexing past the target's
// length panics.
func (h *Handle[T]) At(i int) *T {
	return &h.Slice()[i]
}

// Borrow returns the raw target address. The handle keeps ownership; the
// pointer is only valid while some Handle owns the target.
func (h *Handle[T]) Borrow() unsafe.Pointer {
	return h.addr
}

// Slice returns a view of the elements of the target, or nil for an empty
// handle. The view does not own the memory.
func (h *Handle[T]) Slice() []T {
	if h.addr == nil {
		return nil
	}
	return unsafe.Slice((*T)(h.addr), h.Len())
}

// All iterates over the elements of the target.
func (h *Handle[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		s := h.Slice()
		for i := range s {
			if !yield(i, &s[i]) {
				return
			}
		}
	}
}

// Begin returns a Cursor at the first element of the target.
func (h *Handle[T]) Begin() Cursor[T] {
	return newCursor[T](h.addr, h.extent(), 0)
}

// End returns a Cursor one past the last element of the target.
func (h *Handle[T]) End() Cursor[T] {
	n := h.extent()
	return newCursor[T](h.addr, n, n)
}

// extent is the cursor range length; empty handles have nothing to walk.
func (h *Handle[T]) extent() int {
	if h.addr == nil {
		return 0
	}
	return h.Len()
}

// Len returns 1 for scalar handles and the fixed length for arrays.
func (h *Handle[T]) Len() int {
	if h.kind == KindArray {
		return h.length
	}
	return 1
}

// Kind returns the handle's kind.
func (h *Handle[T]) Kind() Kind { return h.kind }

// IsArray reports whether h belongs to an array configuration.
func (h *Handle[T]) IsArray() bool { return h.kind == KindArray }

// IsNil reports whether h has no target.
func (h *Handle[T]) IsNil() bool { return h.addr == nil }

// Key returns the configuration h belongs to.
func (h *Handle[T]) Key() Key { return h.reg.key }

// RefCount returns the owner count of h's target, or 0 for an empty handle.
func (h *Handle[T]) RefCount() int {
	if h.addr == nil {
		return 0
	}
	if rec, ok := h.reg.find(h.addr); ok {
		return rec.refs
	}
	return 0
}

func (h *Handle[T]) String() string {
	return fmt.Sprintf("Handle[%s](%p, refs=%d)", h.reg.key, h.addr, h.RefCount())
}

// Collect sweeps the registry of T's configuration with the given length
// (0 for scalars) and reports whether any record was freed.
func Collect[T any](t *Table, length int) bool {
	return t.Collect(KeyOf[T](length))
}

// RegistrySize returns the number of records registered for T's
// configuration with the given length (0 for scalars).
func RegistrySize[T any](t *Table, length int) int {
	return t.Size(KeyOf[T](length))
}
