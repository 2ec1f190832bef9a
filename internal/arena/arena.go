// Package arena provides an off-heap block allocator with block reuse.
//
// # Concurrency Model
//
// All Arena methods are safe for concurrent use; a single mutex guards the
// chunk list, the free sets and the live block table.
//
// # Memory Management
//
// Arena allocates memory in large chunks (1 MiB default). Memory is not
// returned to the OS until Close() is called; freed blocks are recycled for
// later allocations of the same aligned size.
package arena

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/gcptr/internal/conv"
	"github.com/hupe1980/gcptr/internal/mmap"
)

// MemoryAcquirer reserves and releases bytes against an external budget.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrMaxChunksExceeded is returned when the arena exceeds the maximum number of chunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
	// ErrBlockTooLarge is returned when a request does not fit in a single chunk.
	ErrBlockTooLarge = errors.New("arena: block larger than chunk")
	// ErrInvalidSize is returned for non-positive block sizes.
	ErrInvalidSize = errors.New("arena: invalid block size")
	// ErrUnknownBlock is returned when freeing an address the arena did not hand out.
	ErrUnknownBlock = errors.New("arena: unknown block")
	// ErrClosed is returned when using an arena after Close.
	ErrClosed = errors.New("arena: closed")
)

const (
	// DefaultChunkSize is the default size of a chunk (1MB).
	DefaultChunkSize = 1024 * 1024
	// DefaultAlignment is the default memory alignment (8 bytes).
	DefaultAlignment = 8
	// MaxChunks limits the number of chunks to prevent excessive memory usage.
	MaxChunks = 65536
)

// Stats tracks arena memory usage metrics.
//
// Note on semantics:
//   - BytesReserved: memory mapped from the OS
//   - BytesUsed: bytes held by live blocks (before alignment)
//   - BytesWasted: alignment padding of live blocks plus chunk tails
//   - BytesFree: bytes parked in free sets awaiting reuse
//   - TotalAllocs: cumulative allocation count
//   - Reused: allocations served from a free set
type Stats struct {
	ChunksAllocated uint64
	BytesReserved   uint64
	BytesUsed       uint64
	BytesWasted     uint64
	BytesFree       uint64
	ActiveChunks    uint64
	LiveBlocks      uint64
	TotalAllocs     uint64
	TotalFrees      uint64
	Reused          uint64
}

type atomicStats struct {
	ChunksAllocated atomic.Uint64
	BytesReserved   atomic.Uint64
	BytesUsed       atomic.Uint64
	BytesWasted     atomic.Uint64
	BytesFree       atomic.Uint64
	ActiveChunks    atomic.Uint64
	TotalAllocs     atomic.Uint64
	TotalFrees      atomic.Uint64
	Reused          atomic.Uint64
}

type chunk struct {
	data    []byte
	mapping *mmap.Mapping
	offset  int
	index   uint64
}

type block struct {
	offset  uint64 // global offset: chunk index << chunkBits | chunk offset
	size    int    // requested size
	aligned int    // size rounded up to the alignment
}

// Arena is an off-heap block allocator.
type Arena struct {
	chunkSize int
	chunkBits int
	chunkMask uint64
	alignment int

	mu      sync.Mutex
	chunks  []*chunk
	current *chunk
	free    map[int]*roaring64.Bitmap // aligned size -> free global offsets
	live    map[uintptr]block
	closed  bool

	stats    atomicStats
	acquirer MemoryAcquirer
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer sets the memory acquirer for the arena.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithAlignment sets the block alignment. Values that are not a power of two
// are ignored.
func WithAlignment(align int) Option {
	return func(a *Arena) {
		if align > 0 && align&(align-1) == 0 {
			a.alignment = align
		}
	}
}

// New creates a new Arena with the given chunk size.
// The chunk size is rounded up to a power of two of at least one page.
// No memory is mapped until the first allocation.
func New(chunkSize int, opts ...Option) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if page := mmap.PageSize(); chunkSize < page {
		chunkSize = page
	}

	// Round up to next power of 2 for efficient bitwise operations
	chunkBits := bits.Len(uint(chunkSize - 1)) //nolint:gosec // chunkSize > 0
	chunkSize = 1 << chunkBits

	a := &Arena{
		chunkSize: chunkSize,
		chunkBits: chunkBits,
		chunkMask: uint64(chunkSize - 1),
		alignment: DefaultAlignment,
		free:      make(map[int]*roaring64.Bitmap),
		live:      make(map[uintptr]block),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// ChunkSize returns the effective chunk size.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

// Alignment returns the block alignment.
func (a *Arena) Alignment() int {
	return a.alignment
}

func (a *Arena) allocateChunkLocked() error {
	idx := uint64(len(a.chunks))
	if idx >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(a.chunkSize)); err != nil {
			return err
		}
	}

	mapping, err := mmap.MapAnon(a.chunkSize)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(a.chunkSize))
		}
		return fmt.Errorf("failed to map anonymous memory for chunk: %w", err)
	}

	c := &chunk{
		data:    mapping.Bytes(),
		mapping: mapping,
		index:   idx,
	}

	// The unused tail of the previous chunk is lost.
	if a.current != nil {
		a.stats.BytesWasted.Add(uint64(len(a.current.data) - a.current.offset))
		a.current.offset = len(a.current.data)
	}

	a.chunks = append(a.chunks, c)
	a.current = c

	a.stats.ChunksAllocated.Add(1)
	a.stats.BytesReserved.Add(uint64(a.chunkSize))
	a.stats.ActiveChunks.Add(1)

	return nil
}

// Alloc returns a zeroed block of at least size bytes, aligned to the
// arena's alignment.
func (a *Arena) Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	aligned := conv.AlignUp(size, a.alignment)
	if aligned > a.chunkSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, aligned, a.chunkSize)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	offset, reused, err := a.reserveLocked(aligned)
	if err != nil {
		return nil, err
	}

	ptr := a.pointerLocked(offset)
	if reused {
		clear(unsafe.Slice((*byte)(ptr), aligned))
	}

	a.live[uintptr(ptr)] = block{offset: offset, size: size, aligned: aligned}

	a.stats.BytesUsed.Add(uint64(size))
	a.stats.BytesWasted.Add(uint64(aligned - size))
	a.stats.TotalAllocs.Add(1)

	return ptr, nil
}

func (a *Arena) reserveLocked(aligned int) (uint64, bool, error) {
	if fs := a.free[aligned]; fs != nil && !fs.IsEmpty() {
		offset := fs.Minimum()
		fs.Remove(offset)
		a.stats.BytesFree.Add(^uint64(aligned - 1))
		a.stats.Reused.Add(1)
		return offset, true, nil
	}

	if a.current == nil || a.current.offset+aligned > len(a.current.data) {
		if err := a.allocateChunkLocked(); err != nil {
			return 0, false, err
		}
	}

	c := a.current
	offset := (c.index << a.chunkBits) | uint64(c.offset)
	c.offset += aligned
	return offset, false, nil
}

func (a *Arena) pointerLocked(offset uint64) unsafe.Pointer {
	c := a.chunks[offset>>a.chunkBits]
	return unsafe.Pointer(&c.data[offset&a.chunkMask]) //nolint:gosec // unsafe is required for arena implementation
}

// Free returns a block to the arena. The block's storage is kept for reuse by
// later allocations of the same aligned size.
func (a *Arena) Free(ptr unsafe.Pointer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	b, ok := a.live[uintptr(ptr)]
	if !ok {
		return fmt.Errorf("%w: %p", ErrUnknownBlock, ptr)
	}
	delete(a.live, uintptr(ptr))

	fs := a.free[b.aligned]
	if fs == nil {
		fs = roaring64.New()
		a.free[b.aligned] = fs
	}
	fs.Add(b.offset)

	a.stats.BytesUsed.Add(^uint64(b.size - 1))
	a.stats.BytesWasted.Add(^uint64(b.aligned - b.size - 1))
	a.stats.BytesFree.Add(uint64(b.aligned))
	a.stats.TotalFrees.Add(1)

	return nil
}

// BlockSize returns the requested size of a live block.
func (a *Arena) BlockSize(ptr unsafe.Pointer) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.live[uintptr(ptr)]
	return b.size, ok
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	liveBlocks := uint64(len(a.live))
	a.mu.Unlock()

	return Stats{
		ChunksAllocated: a.stats.ChunksAllocated.Load(),
		BytesReserved:   a.stats.BytesReserved.Load(),
		BytesUsed:       a.stats.BytesUsed.Load(),
		BytesWasted:     a.stats.BytesWasted.Load(),
		BytesFree:       a.stats.BytesFree.Load(),
		ActiveChunks:    a.stats.ActiveChunks.Load(),
		LiveBlocks:      liveBlocks,
		TotalAllocs:     a.stats.TotalAllocs.Load(),
		TotalFrees:      a.stats.TotalFrees.Load(),
		Reused:          a.stats.Reused.Load(),
	}
}

// Close unmaps all chunks and releases their budget.
//
// IMPORTANT:
//  1. All blocks handed out by this arena become invalid
//  2. The arena cannot be reused afterwards
//
// Close is idempotent.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if a.acquirer != nil {
		if reserved := a.stats.BytesReserved.Load(); reserved > 0 {
			a.acquirer.ReleaseMemory(int64(reserved)) //nolint:gosec // bounded by MaxChunks*chunkSize
		}
	}

	var errs []error
	for _, c := range a.chunks {
		if err := c.mapping.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.chunks = nil
	a.current = nil
	a.free = nil
	a.live = nil

	a.stats.ActiveChunks.Store(0)
	a.stats.BytesReserved.Store(0)
	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
	a.stats.BytesFree.Store(0)

	return errors.Join(errs...)
}
