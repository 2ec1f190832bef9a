// Package resource implements a memory budget shared by allocators.
//
// A Controller caps the number of bytes that allocators may hand out at any
// one time. Reservations never block: when a request would exceed the limit
// the allocator receives ErrMemoryLimitExceeded immediately and reports an
// allocation failure to its caller. The caller decides how to recover, usually
// by collecting unreferenced handles and retrying.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MB
//	})
//
//	heap := alloc.NewHeap(alloc.WithController(rc))
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully: reservations always succeed
// and nothing is tracked. Allocators therefore never need a nil check.
package resource
