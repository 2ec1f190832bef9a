// Package arena provides an off-heap block allocator with block reuse.
//
// The arena obtains large chunks of anonymous memory from the operating
// system and carves blocks out of them with a bump pointer. Freed blocks are
// remembered per aligned size in roaring bitmaps of their offsets and handed
// out again before the bump pointer advances, so a workload that keeps
// allocating and freeing same-sized values stays inside a bounded footprint.
//
// # Features
//
//   - Off-heap allocation via mmap (no GC scanning, pointer-free data only)
//   - Power-of-two chunk size for cheap offset arithmetic
//   - Per-size free sets for O(1)-ish reuse of freed blocks
//   - Optional memory budget through MemoryAcquirer
//
// # Safety
//
// All methods return errors instead of panicking. Blocks are zeroed when they
// are handed out. Every block becomes invalid once Close is called.
package arena
