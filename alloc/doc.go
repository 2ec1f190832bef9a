// Package alloc defines the raw allocation facility that handles draw from.
//
// An Allocator hands out blocks of n elements of a given type and takes them
// back. It knows nothing about reference counts: deciding when a block is
// freed is the job of the handle registry in package gcptr.
//
// # Implementations
//
//   - Heap: typed memory on the Go heap. Works for every element type,
//     including types that hold Go pointers. Blocks stay pinned until freed
//     and are cleared on free.
//   - Mmap: one anonymous mapping per block. Off-heap, pointer-free element
//     types only. Freed blocks are returned to the operating system at once.
//   - Arena: chunked off-heap arena with per-size reuse of freed blocks.
//     Pointer-free element types only.
//   - Faulty: wraps another Allocator and injects failures, for tests.
//
// # Allocation Failure
//
// Every allocator accepts an optional resource.Controller budget. When a
// request cannot be satisfied, because the budget is exhausted or the
// operating system refuses memory, the returned error wraps
// ErrAllocationFailed. Allocators never retry; callers recover by releasing
// handles or collecting unreferenced blocks and trying again:
//
//	p, err := gcptr.Alloc[Frame](t)
//	if errors.Is(err, alloc.ErrAllocationFailed) {
//	    t.CollectAll()
//	    p, err = gcptr.Alloc[Frame](t)
//	}
//
// # Thread Safety
//
// All allocators are safe for concurrent use.
package alloc
