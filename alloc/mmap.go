package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/hupe1980/gcptr/internal/mmap"
	"github.com/hupe1980/gcptr/resource"
)

// Mmap backs every block with its own anonymous mapping.
//
// Blocks are page granular, so Mmap suits large arrays. Freed blocks are
// unmapped immediately.
type Mmap struct {
	mu     sync.Mutex
	blocks map[uintptr]mmapBlock
	closed bool

	rc    *resource.Controller
	stats counters
}

type mmapBlock struct {
	mapping *mmap.Mapping
	elem    reflect.Type
	n       int
}

var (
	_ Allocator = (*Mmap)(nil)
	_ Measurer  = (*Mmap)(nil)
)

// NewMmap creates an allocator backed by anonymous mappings.
func NewMmap(optFns ...Option) *Mmap {
	o := applyOptions(optFns)
	return &Mmap{
		blocks: make(map[uintptr]mmapBlock),
		rc:     o.controller,
	}
}

// Allocate implements Allocator.
func (m *Mmap) Allocate(elem reflect.Type, n int) (unsafe.Pointer, error) {
	size, err := blockSize(elem, n)
	if err != nil {
		return nil, err
	}
	if err := requirePointerFree(elem); err != nil {
		return nil, err
	}

	mapped := mmap.RoundToPage(size)
	if err := m.rc.AcquireMemory(int64(mapped)); err != nil {
		m.stats.failed()
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAllocationFailed, mapped, err)
	}

	mapping, err := mmap.MapAnon(size)
	if err != nil {
		m.rc.ReleaseMemory(int64(mapped))
		m.stats.failed()
		return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = mapping.Close()
		m.rc.ReleaseMemory(int64(mapped))
		return nil, ErrClosed
	}
	p := mapping.Pointer()
	m.blocks[uintptr(p)] = mmapBlock{mapping: mapping, elem: elem, n: n}
	m.mu.Unlock()

	m.stats.allocated(mapped)
	return p, nil
}

// Free implements Allocator. The whole mapping at p is released, whatever n
// says.
func (m *Mmap) Free(p unsafe.Pointer, elem reflect.Type, n int) error {
	if _, err := blockSize(elem, n); err != nil {
		return err
	}

	m.mu.Lock()
	b, ok := m.blocks[uintptr(p)]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %p", ErrUnknownBlock, p)
	}
	if b.elem != elem {
		m.mu.Unlock()
		return fmt.Errorf("%w: block %p holds %s, not %s", ErrInvalidType, p, b.elem, elem)
	}
	delete(m.blocks, uintptr(p))
	m.mu.Unlock()

	size := b.mapping.Size()
	err := b.mapping.Close()
	m.rc.ReleaseMemory(int64(size))
	m.stats.freed(size)
	return err
}

// Close unmaps every block still outstanding. It is idempotent.
func (m *Mmap) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for p, b := range m.blocks {
		size := b.mapping.Size()
		if err := b.mapping.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.rc.ReleaseMemory(int64(size))
		m.stats.freed(size)
		delete(m.blocks, p)
	}
	return firstErr
}

// BlockLen implements Measurer.
func (m *Mmap) BlockLen(p unsafe.Pointer, elem reflect.Type) (int, bool) {
	m.mu.Lock()
	b, ok := m.blocks[uintptr(p)]
	m.mu.Unlock()
	if !ok || b.elem != elem {
		return 0, false
	}
	return b.n, true
}

// Stats returns a snapshot of allocator activity.
func (m *Mmap) Stats() Stats {
	return m.stats.snapshot()
}
