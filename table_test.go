package gcptr

import (
	"bytes"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gcptr/alloc"
	"github.com/hupe1980/gcptr/internal/conv"
)

func TestKey(t *testing.T) {
	tests := []struct {
		key   Key
		kind  Kind
		count int
		str   string
	}{
		{KeyOf[int](0), KindScalar, 1, "int"},
		{KeyOf[int](5), KindArray, 5, "[5]int"},
		{KeyOf[node](0), KindScalar, 1, "gcptr.node"},
		{Key{}, KindScalar, 1, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.key.Kind())
			assert.Equal(t, tt.count, tt.key.Count())
			assert.Equal(t, tt.str, tt.key.String())
		})
	}

	assert.Equal(t, KeyOf[int](2), Key{Elem: reflect.TypeFor[int](), Length: 2})
	assert.NotEqual(t, KeyOf[int](2), KeyOf[int](3))
	assert.Equal(t, "scalar", KindScalar.String())
	assert.Equal(t, "array", KindArray.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

func TestTable_Keys(t *testing.T) {
	tbl := newManualTable(t)
	assert.Empty(t, tbl.Keys())

	New[string](tbl, nil)
	NewArray[byte](tbl, 4, nil)
	New[string](tbl, nil)

	assert.Equal(t, []Key{KeyOf[string](0), KeyOf[byte](4)}, tbl.Keys())
	assert.Nil(t, tbl.Records(KeyOf[bool](0)))
	assert.Equal(t, 0, tbl.RefCount(KeyOf[bool](0), nil))
}

func TestTable_Records(t *testing.T) {
	tbl := newManualTable(t)

	first, err := Make[int](tbl)
	require.NoError(t, err)
	second, err := Make[int](tbl)
	require.NoError(t, err)
	second.Clone()

	records := tbl.Records(KeyOf[int](0))
	require.Len(t, records, 2)
	assert.Equal(t, RecordInfo{Addr: uintptr(second.Borrow()), RefCount: 2, Kind: KindScalar, Seq: 2}, records[0])
	assert.Equal(t, RecordInfo{Addr: uintptr(first.Borrow()), RefCount: 1, Kind: KindScalar, Seq: 1}, records[1])
}

func TestTable_Allocators(t *testing.T) {
	mm := alloc.NewMmap()
	t.Cleanup(func() { _ = mm.Close() })
	ar := alloc.NewArena(alloc.WithChunkSize(1 << 16))
	t.Cleanup(func() { _ = ar.Close() })

	allocators := map[string]alloc.Allocator{
		"heap":  alloc.NewHeap(),
		"mmap":  mm,
		"arena": ar,
	}

	for name, a := range allocators {
		t.Run(name, func(t *testing.T) {
			tbl := NewTable(WithAllocator(a))

			h, err := MakeArray[uint32](tbl, 64)
			require.NoError(t, err)
			for i, v := range h.All() {
				*v = uint32(i) * 3
			}
			assert.Equal(t, uint32(189), *h.At(63))

			s, err := Make[float64](tbl)
			require.NoError(t, err)
			*s.Value() = 1.5

			h.Release()
			assert.Equal(t, 0, RegistrySize[uint32](tbl, 64))
			assert.Equal(t, 1, RegistrySize[float64](tbl, 0))

			require.NoError(t, tbl.Close())
			assert.Equal(t, 0, RegistrySize[float64](tbl, 0))
		})
	}

	assert.Equal(t, int64(0), mm.Stats().LiveBlocks)
	assert.Equal(t, int64(0), ar.Stats().LiveBlocks)
}

func TestTable_OffHeapRejectsPointers(t *testing.T) {
	mm := alloc.NewMmap()
	defer mm.Close()

	tbl := NewTable(WithAllocator(mm))
	defer tbl.Close()

	_, err := Make[node](tbl)
	assert.ErrorIs(t, err, alloc.ErrInvalidType)
}

func TestAllocArray_InvalidLength(t *testing.T) {
	tbl := newManualTable(t)

	_, err := AllocArray[int](tbl, 0)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = MakeArray[int](tbl, -1)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestAllocArray_Overflow(t *testing.T) {
	mc := &BasicMetricsCollector{}
	heap := alloc.NewHeap()
	tbl := newManualTable(t, WithAllocator(heap), WithMetricsCollector(mc))

	_, err := AllocArray[int64](tbl, math.MaxInt/2)
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.ErrorIs(t, err, conv.ErrOverflow)

	assert.Equal(t, int64(1), mc.GetStats().AllocErrors)
	assert.Equal(t, int64(0), heap.Stats().Allocs)
}

func TestTable_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tbl := NewTable(WithLogger(logger))
	assert.Same(t, logger, tbl.Logger())

	h, err := Make[int](tbl)
	require.NoError(t, err)
	h.Release()

	New(tbl, new(int))
	require.Error(t, tbl.Close())

	out := buf.String()
	assert.Contains(t, out, "registry created")
	assert.Contains(t, out, "allocation completed")
	assert.Contains(t, out, "handle constructed")
	assert.Contains(t, out, "handle released")
	assert.Contains(t, out, "collect completed")
	assert.Contains(t, out, "free failed")
	assert.Contains(t, out, "shutdown failed")
	assert.Contains(t, out, "key=int")
}

func TestMetrics_Basic(t *testing.T) {
	mc := &BasicMetricsCollector{}
	rcTbl := NewTable(WithMetricsCollector(mc), WithCollectPolicy(CollectManual()))

	for range 3 {
		h, err := Make[int64](rcTbl)
		require.NoError(t, err)
		h.Release()
	}
	_, err := AllocArray[int64](rcTbl, 4)
	require.NoError(t, err)

	assert.True(t, rcTbl.CollectAll())
	require.NoError(t, rcTbl.Close())

	stats := mc.GetStats()
	assert.Equal(t, int64(4), stats.AllocCount)
	assert.Equal(t, int64(0), stats.AllocErrors)
	assert.Equal(t, int64(3*8+4*8), stats.AllocBytes)
	assert.Equal(t, int64(3), stats.CollectFreed)
	assert.Equal(t, int64(0), stats.ShutdownLeaked)

	_, err = Alloc[int64](rcTbl)
	require.ErrorIs(t, err, ErrTableClosed)
	assert.Equal(t, int64(1), mc.GetStats().AllocErrors)
}

func TestNoopMetricsCollector(t *testing.T) {
	var mc MetricsCollector = NoopMetricsCollector{}
	assert.NotPanics(t, func() {
		mc.RecordAllocation("int", 8, nil)
		mc.RecordCollect("int", 1, 0, nil)
		mc.RecordShutdown("int", 1, 0, nil)
	})
}

func TestHandle_String(t *testing.T) {
	tbl := newManualTable(t)
	h := New[int](tbl, nil)
	assert.Equal(t, "Handle[int](0x0, refs=0)", h.String())

	p := mustAlloc[int](t, tbl)
	h.Set(p)
	assert.Contains(t, h.String(), "refs=1")
	assert.Equal(t, unsafe.Pointer(p), h.Borrow())
}
