// Package gcptr provides deferred, reference-counted memory management for
// explicitly allocated values.
//
// A Handle is a counted reference to an allocation. Every allocation adopted
// by at least one Handle has a record in the registry of its configuration
// (element type plus, for arrays, a fixed length). Handles add and remove
// owners as they are created, cloned, retargeted and released; the collector
// frees allocations whose owner count dropped to zero.
//
// # Quick Start
//
//	t := gcptr.NewTable()
//	defer t.Close()
//
//	h, err := gcptr.Make[int](t)
//	if err != nil {
//	    return err
//	}
//	*h.Value() = 42
//
//	c := h.Clone()  // two owners
//	h.Release()     // one owner left, nothing freed
//	c.Release()     // last owner gone, the int is collected
//
// # Arrays and Cursors
//
// Array handles have a length fixed by their configuration. Cursors walk them
// with checked reads:
//
//	a, _ := gcptr.MakeArray[int](t, 5)
//	for c := a.Begin(); c.Less(a.End()); c.Inc() {
//	    v, _ := c.Value()
//	    *v = c.Position()
//	}
//
// Reading outside the range returns an error wrapping ErrOutOfRange.
//
// # Collection
//
// When a Handle is released the Table's CollectPolicy decides whether its
// registry is swept. CollectEager sweeps on every release; CollectManual
// leaves it to explicit Collect calls. Table.Close forces every remaining
// allocation free, whether or not Handles still reference it.
//
// Allocation failures are never intercepted. Recover by collecting and
// retrying:
//
//	p, err := gcptr.Alloc[Node](t)
//	if errors.Is(err, gcptr.ErrAllocationFailed) {
//	    t.CollectAll()
//	    p, err = gcptr.Alloc[Node](t)
//	}
//
// Liveness is purely count based: allocations that reference each other
// through Handles are never collected before Close.
//
// # Thread Safety
//
// A Table and its Handles are not safe for concurrent use. The allocators in
// package alloc are.
package gcptr
