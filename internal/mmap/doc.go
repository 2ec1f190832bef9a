// Package mmap provides anonymous memory mappings for off-heap allocation.
//
// # Overview
//
// An anonymous mapping is read-write memory obtained directly from the
// operating system. The Go garbage collector neither scans nor moves it, so it
// may only hold pointer-free data. The Mmap and Arena allocators use it to back
// blocks whose lifetime is governed by handle reference counts instead of the
// Go runtime.
//
// # Usage
//
//	m, err := mmap.MapAnon(64 * 1024)
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close returns.
package mmap
