package alloc

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gcptr/resource"
)

type point struct {
	X, Y int64
}

type node struct {
	Name string
	Next *node
}

var (
	int64Type = reflect.TypeFor[int64]()
	pointType = reflect.TypeFor[point]()
	nodeType  = reflect.TypeFor[node]()
)

type closer interface {
	Close() error
}

type statser interface {
	Stats() Stats
}

func allocators(optFns ...Option) map[string]Allocator {
	return map[string]Allocator{
		"heap":  NewHeap(optFns...),
		"mmap":  NewMmap(optFns...),
		"arena": NewArena(append(optFns, WithChunkSize(64*1024))...),
	}
}

func TestAllocators_AllocateFree(t *testing.T) {
	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			if c, ok := a.(closer); ok {
				defer c.Close()
			}

			p, err := a.Allocate(pointType, 1)
			require.NoError(t, err)
			require.NotNil(t, p)

			pt := (*point)(p)
			assert.Equal(t, point{}, *pt)
			pt.X, pt.Y = 3, 4

			arr, err := a.Allocate(int64Type, 16)
			require.NoError(t, err)
			s := unsafe.Slice((*int64)(arr), 16)
			for i := range s {
				assert.Zero(t, s[i])
				s[i] = int64(i)
			}
			assert.Equal(t, int64(15), s[15])

			stats := a.(statser).Stats()
			assert.Equal(t, int64(2), stats.Allocs)
			assert.Equal(t, int64(2), stats.LiveBlocks)

			require.NoError(t, a.Free(p, pointType, 1))
			require.NoError(t, a.Free(arr, int64Type, 16))

			stats = a.(statser).Stats()
			assert.Equal(t, int64(2), stats.Frees)
			assert.Equal(t, int64(0), stats.LiveBlocks)
			assert.Equal(t, int64(0), stats.LiveBytes)

			err = a.Free(p, pointType, 1)
			assert.ErrorIs(t, err, ErrUnknownBlock)
		})
	}
}

func TestAllocators_InvalidRequests(t *testing.T) {
	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			if c, ok := a.(closer); ok {
				defer c.Close()
			}

			_, err := a.Allocate(nil, 1)
			assert.ErrorIs(t, err, ErrInvalidType)

			_, err = a.Allocate(int64Type, 0)
			assert.ErrorIs(t, err, ErrInvalidCount)

			_, err = a.Allocate(reflect.TypeFor[struct{}](), 1)
			assert.ErrorIs(t, err, ErrInvalidType)
		})
	}
}

func TestAllocators_MemoryLimit(t *testing.T) {
	for name, a := range allocators(WithController(resource.NewController(resource.Config{MemoryLimitBytes: 1}))) {
		t.Run(name, func(t *testing.T) {
			if c, ok := a.(closer); ok {
				defer c.Close()
			}

			_, err := a.Allocate(int64Type, 1)
			require.ErrorIs(t, err, ErrAllocationFailed)
			assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
			assert.Equal(t, int64(1), a.(statser).Stats().Failures)
		})
	}
}

func TestHeap_PointerTypes(t *testing.T) {
	h := NewHeap()

	p, err := h.Allocate(nodeType, 1)
	require.NoError(t, err)

	n := (*node)(p)
	n.Name = "head"
	n.Next = &node{Name: "tail"}

	require.NoError(t, h.Free(p, nodeType, 1))
	// Free clears the block so the tail is no longer reachable through it.
	assert.Equal(t, node{}, *n)
}

func TestAllocators_FreeReleasesWholeBlock(t *testing.T) {
	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			if c, ok := a.(closer); ok {
				defer c.Close()
			}

			p, err := a.Allocate(int64Type, 20)
			require.NoError(t, err)

			m, ok := a.(Measurer)
			require.True(t, ok)
			n, ok := m.BlockLen(p, int64Type)
			require.True(t, ok)
			assert.Equal(t, 20, n)

			// A shorter count still releases the whole block.
			require.NoError(t, a.Free(p, int64Type, 10))

			_, ok = m.BlockLen(p, int64Type)
			assert.False(t, ok)
			stats := a.(statser).Stats()
			assert.Equal(t, int64(0), stats.LiveBlocks)
			assert.Equal(t, int64(0), stats.LiveBytes)
		})
	}
}

func TestAllocators_FreeTypeMismatch(t *testing.T) {
	int32Type := reflect.TypeFor[int32]()

	for name, a := range allocators() {
		t.Run(name, func(t *testing.T) {
			if c, ok := a.(closer); ok {
				defer c.Close()
			}

			p, err := a.Allocate(int32Type, 3)
			require.NoError(t, err)

			_, ok := a.(Measurer).BlockLen(p, int64Type)
			assert.False(t, ok)

			err = a.Free(p, int64Type, 1)
			assert.ErrorIs(t, err, ErrInvalidType)

			require.NoError(t, a.Free(p, int32Type, 3))
		})
	}
}

func TestArena_WithAlignment(t *testing.T) {
	a := NewArena(WithAlignment(64))
	defer a.Close()

	for range 4 {
		p, err := a.Allocate(int64Type, 1)
		require.NoError(t, err)
		assert.Zero(t, uintptr(p)%64)
	}
}

func TestHeap_BudgetReleasedOnFree(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	h := NewHeap(WithController(rc))

	p, err := h.Allocate(int64Type, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(16), rc.MemoryUsage())

	_, err = h.Allocate(int64Type, 1)
	require.ErrorIs(t, err, ErrAllocationFailed)

	require.NoError(t, h.Free(p, int64Type, 2))
	assert.Equal(t, int64(0), rc.MemoryUsage())

	_, err = h.Allocate(int64Type, 1)
	require.NoError(t, err)
}

func TestOffHeap_RejectsPointerTypes(t *testing.T) {
	m := NewMmap()
	defer m.Close()
	_, err := m.Allocate(nodeType, 1)
	assert.ErrorIs(t, err, ErrInvalidType)

	a := NewArena()
	defer a.Close()
	_, err = a.Allocate(nodeType, 1)
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestMmap_Close(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	m := NewMmap(WithController(rc))

	_, err := m.Allocate(int64Type, 1024)
	require.NoError(t, err)
	assert.Positive(t, rc.MemoryUsage())

	require.NoError(t, m.Close())
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Equal(t, int64(0), m.Stats().LiveBlocks)

	_, err = m.Allocate(int64Type, 1)
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, m.Close())
}

func TestArena_ReusesFreedBlocks(t *testing.T) {
	a := NewArena(WithChunkSize(64 * 1024))
	defer a.Close()

	p1, err := a.Allocate(pointType, 1)
	require.NoError(t, err)
	require.NoError(t, a.Free(p1, pointType, 1))

	p2, err := a.Allocate(pointType, 1)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, uint64(1), a.ArenaStats().Reused)
}

func TestArena_BlockTooLarge(t *testing.T) {
	a := NewArena(WithChunkSize(64 * 1024))
	defer a.Close()

	_, err := a.Allocate(int64Type, 1<<20)
	assert.ErrorIs(t, err, ErrAllocationFailed)
}

func TestHasPointers(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want bool
	}{
		{reflect.TypeFor[int](), false},
		{reflect.TypeFor[point](), false},
		{reflect.TypeFor[[4]float64](), false},
		{reflect.TypeFor[string](), true},
		{reflect.TypeFor[[]int](), true},
		{reflect.TypeFor[*int](), true},
		{reflect.TypeFor[node](), true},
		{reflect.TypeFor[[2]node](), true},
		{reflect.TypeFor[[0]*int](), false},
		{reflect.TypeFor[map[string]int](), true},
		{reflect.TypeFor[any](), true},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPointers(tt.typ))
		})
	}
}
