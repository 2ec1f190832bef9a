package alloc

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/hupe1980/gcptr/internal/arena"
)

// ArenaStats describes the chunk level state of an Arena.
type ArenaStats = arena.Stats

// Arena carves blocks out of large off-heap chunks and reuses freed blocks of
// the same size. It suits many small, short-lived, pointer-free values.
type Arena struct {
	a     *arena.Arena
	stats counters
}

var (
	_ Allocator = (*Arena)(nil)
	_ Measurer  = (*Arena)(nil)
)

// NewArena creates an arena allocator. WithChunkSize bounds the largest block
// and WithAlignment raises the block alignment above arena.DefaultAlignment.
func NewArena(optFns ...Option) *Arena {
	o := applyOptions(optFns)

	var arenaOpts []arena.Option
	if o.controller != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(o.controller))
	}
	if o.alignment > 0 {
		arenaOpts = append(arenaOpts, arena.WithAlignment(o.alignment))
	}

	return &Arena{a: arena.New(o.chunkSize, arenaOpts...)}
}

// Allocate implements Allocator.
func (a *Arena) Allocate(elem reflect.Type, n int) (unsafe.Pointer, error) {
	size, err := blockSize(elem, n)
	if err != nil {
		return nil, err
	}
	if err := requirePointerFree(elem); err != nil {
		return nil, err
	}
	if elem.Align() > a.a.Alignment() {
		return nil, fmt.Errorf("%w: %s needs %d-byte alignment", ErrInvalidType, elem, elem.Align())
	}

	p, err := a.a.Alloc(size)
	if err != nil {
		if errors.Is(err, arena.ErrClosed) {
			return nil, ErrClosed
		}
		a.stats.failed()
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAllocationFailed, size, err)
	}

	a.stats.allocated(size)
	return p, nil
}

// Free implements Allocator. The block at p is released in full, whatever n
// says.
func (a *Arena) Free(p unsafe.Pointer, elem reflect.Type, n int) error {
	if _, err := blockSize(elem, n); err != nil {
		return err
	}

	size, ok := a.a.BlockSize(p)
	if ok && size%int(elem.Size()) != 0 {
		return fmt.Errorf("%w: block %p of %d bytes does not hold %s", ErrInvalidType, p, size, elem)
	}

	if err := a.a.Free(p); err != nil {
		switch {
		case errors.Is(err, arena.ErrClosed):
			return ErrClosed
		case errors.Is(err, arena.ErrUnknownBlock):
			return fmt.Errorf("%w: %p", ErrUnknownBlock, p)
		default:
			return err
		}
	}

	a.stats.freed(size)
	return nil
}

// BlockLen implements Measurer.
func (a *Arena) BlockLen(p unsafe.Pointer, elem reflect.Type) (int, bool) {
	if elem == nil || elem.Size() == 0 {
		return 0, false
	}
	size, ok := a.a.BlockSize(p)
	if !ok || size%int(elem.Size()) != 0 {
		return 0, false
	}
	return size / int(elem.Size()), true
}

// Close unmaps all chunks. Every outstanding block becomes invalid.
func (a *Arena) Close() error {
	return a.a.Close()
}

// Stats returns a snapshot of allocator activity.
func (a *Arena) Stats() Stats {
	return a.stats.snapshot()
}

// ArenaStats returns chunk level statistics.
func (a *Arena) ArenaStats() ArenaStats {
	return a.a.Stats()
}
