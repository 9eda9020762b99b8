package pagealloc

import (
	"fmt"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pagealloc/internal/arena"
	"github.com/hupe1980/pagealloc/internal/page"
	"github.com/hupe1980/pagealloc/testutil"
)

func fillBytes(p unsafe.Pointer, size uintptr, v byte) {
	b := unsafe.Slice((*byte)(p), size)
	for i := range b {
		b[i] = v
	}
}

func checkBytes(t *testing.T, p unsafe.Pointer, size uintptr, v byte) {
	t.Helper()
	b := unsafe.Slice((*byte)(p), size)
	for i := range b {
		if b[i] != v {
			t.Fatalf("byte %d of %d-byte block at %p: got %#x, want %#x", i, size, p, b[i], v)
		}
	}
}

func TestHeap_RoundTrip(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	for _, size := range []uintptr{1, 8, 9, 16, 1024, 1025, 1_000_000} {
		p, err := h.Alloc(size)
		require.NoError(t, err, "size %d", size)
		require.NotNil(t, p)
		assert.Zero(t, uintptr(p)%8, "size %d not 8-byte aligned", size)

		fillBytes(p, size, 0xAB)
		checkBytes(t, p, size, 0xAB)

		h.Free(p)
	}
}

func TestHeap_Routing(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	tests := []struct {
		size     uintptr
		slotSize uintptr
	}{
		{0, 8},
		{1, 8},
		{8, 8},
		{9, 16},
		{17, 32},
		{33, 64},
		{65, 128},
		{129, 256},
		{257, 512},
		{513, 1024},
		{1024, 1024},
		{1025, 0},
		{4096, 0},
	}

	for _, tt := range tests {
		p, err := h.Alloc(tt.size)
		require.NoError(t, err)

		hdr := page.HeaderOf(p)
		assert.Equal(t, tt.slotSize, hdr.SlotSize(), "size %d", tt.size)
		if tt.slotSize == 0 {
			assert.True(t, hdr.IsLarge())
			assert.GreaterOrEqual(t, hdr.MappedBytes(), tt.size+page.HeaderSize)
		}

		h.Free(p)
	}

	stats := h.Stats()
	assert.Equal(t, uint64(len(tests)), stats.Allocs)
	assert.Equal(t, uint64(2), stats.LargeAllocs)
	assert.Equal(t, uint64(len(tests)), stats.Frees)
}

func TestHeap_LargeBlockLifetime(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	before := page.Outstanding()

	p, err := h.Alloc(100_000)
	require.NoError(t, err)
	assert.Equal(t, before+1, page.Outstanding())
	assert.Equal(t, page.HeaderOf(p).Payload(), p)

	h.Free(p)
	assert.Equal(t, before, page.Outstanding())
	assert.Equal(t, uint64(1), h.Stats().PagesReclaimed)
}

func TestHeap_FreshArenaOnFull(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	before := page.Outstanding()
	capacity := arena.Capacity(1024)

	var first []unsafe.Pointer
	for range capacity {
		p, err := h.Alloc(1000)
		require.NoError(t, err)
		first = append(first, p)
	}
	assert.Equal(t, before+1, page.Outstanding())
	assert.Equal(t, uint64(1), h.Stats().ArenasCreated)
	assert.Zero(t, h.Stats().ActiveArenas, "full arena must leave the table")

	for _, p := range first[1:] {
		assert.Equal(t, page.HeaderOf(first[0]), page.HeaderOf(p))
	}

	p, err := h.Alloc(1000)
	require.NoError(t, err)
	assert.NotEqual(t, page.HeaderOf(first[0]), page.HeaderOf(p))
	assert.Equal(t, before+2, page.Outstanding())
	assert.Equal(t, uint64(2), h.Stats().ArenasCreated)

	for _, q := range first {
		h.Free(q)
	}
	assert.Equal(t, before+1, page.Outstanding())

	h.Free(p)
	assert.Equal(t, before+1, page.Outstanding(), "partial arena stays until the heap closes")

	require.NoError(t, h.Close())
	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_NotPremature(t *testing.T) {
	h := NewHeap()
	before := page.Outstanding()

	a, err := h.Alloc(8)
	require.NoError(t, err)
	b, err := h.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, page.HeaderOf(a), page.HeaderOf(b))

	h.Free(a)
	h.Free(b)
	assert.Equal(t, before+1, page.Outstanding())

	// The arena still serves the class.
	c, err := h.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, page.HeaderOf(a), page.HeaderOf(c))
	h.Free(c)

	require.NoError(t, h.Close())
	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_WholePageReverseOrder(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	before := page.Outstanding()

	var slots []unsafe.Pointer
	for range arena.Capacity(64) {
		p, err := h.Alloc(64)
		require.NoError(t, err)
		slots = append(slots, p)
	}
	require.Equal(t, before+1, page.Outstanding())

	for i := len(slots) - 1; i > 0; i-- {
		h.Free(slots[i])
		require.Equal(t, before+1, page.Outstanding(), "reclaimed with %d slots live", i)
	}
	h.Free(slots[0])
	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_FreeOnOtherGoroutines(t *testing.T) {
	h := NewHeap()
	before := page.Outstanding()

	rng := testutil.NewRNG(7)
	sizes := rng.Sizes(2000, 16_384)

	ptrs := make([]unsafe.Pointer, len(sizes))
	for i, size := range sizes {
		p, err := h.Alloc(size)
		require.NoError(t, err)
		ptrs[i] = p
	}
	rng.ShufflePointers(ptrs)

	var g errgroup.Group
	const workers = 4
	for w := range workers {
		g.Go(func() error {
			for i := w; i < len(ptrs); i += workers {
				Free(ptrs[i])
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.NoError(t, h.Close())
	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_MixedWorkloadLeaks(t *testing.T) {
	for _, closeFirst := range []bool{false, true} {
		name := "FreeThenClose"
		if closeFirst {
			name = "CloseThenFree"
		}

		t.Run(name, func(t *testing.T) {
			metrics := &BasicMetricsCollector{}
			h := NewHeap(WithMetricsCollector(metrics))
			before := page.Outstanding()

			rng := testutil.NewRNG(42)
			sizes := rng.Sizes(10_000, 65_536)

			ptrs := make([]unsafe.Pointer, len(sizes))
			for i, size := range sizes {
				p, err := h.Alloc(size)
				require.NoError(t, err)
				fillBytes(p, size, byte(i))
				ptrs[i] = p
			}

			for i, size := range sizes {
				checkBytes(t, ptrs[i], size, byte(i))
			}

			if closeFirst {
				require.NoError(t, h.Close())
			}

			rng.ShufflePointers(ptrs)
			for _, p := range ptrs {
				h.Free(p)
			}

			if !closeFirst {
				require.NoError(t, h.Close())
			}

			assert.Equal(t, before, page.Outstanding())

			stats := metrics.GetStats()
			assert.Equal(t, int64(len(sizes)), stats.AllocCount)
			assert.Equal(t, int64(len(sizes)), stats.FreeCount)
			assert.Zero(t, stats.AllocErrors)
			assert.Equal(t, uint64(stats.ArenasCreated+stats.LargeCount), h.Stats().PagesReclaimed)
			assert.Equal(t, stats.ArenasCreated+stats.LargeCount, stats.PagesReclaimed)
		})
	}
}

// Releasing goroutines race to return the last slots of a full arena; the
// winner unmaps the page while the others are still inside Free.
func TestHeap_FullArenaFreedConcurrently(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	before := page.Outstanding()
	capacity := arena.Capacity(1024)

	for i := 0; i < 1000; i++ {
		ptrs := make([]unsafe.Pointer, capacity)
		for j := range ptrs {
			p, err := h.Alloc(1000)
			require.NoError(t, err)
			ptrs[j] = p
		}

		var start sync.WaitGroup
		start.Add(1)

		var g errgroup.Group
		for _, p := range ptrs {
			g.Go(func() error {
				start.Wait()
				Free(p)
				return nil
			})
		}
		start.Done()
		require.NoError(t, g.Wait())
	}

	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_ClearsReclaimedCurrentArena(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	before := page.Outstanding()

	class, ok := arena.ClassFor(1024)
	require.True(t, ok)

	a, err := arena.Create(arena.Classes[class])
	require.NoError(t, err)

	var slots []unsafe.Pointer
	for {
		p, last := a.Alloc()
		slots = append(slots, p)
		if last {
			break
		}
	}
	h.table.current[class] = a
	require.Equal(t, 1, h.Stats().ActiveArenas)

	for _, p := range slots {
		h.Free(p)
	}

	assert.Nil(t, h.table.current[class])
	assert.Zero(t, h.Stats().ActiveArenas)
	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_Close(t *testing.T) {
	h := NewHeap()
	before := page.Outstanding()

	p, err := h.Alloc(16)
	require.NoError(t, err)
	q, err := h.Alloc(2048)
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, before+2, page.Outstanding(), "live blocks survive Close")

	_, err = h.Alloc(16)
	require.ErrorIs(t, err, ErrClosed)

	h.Free(p)
	h.Free(q)
	h.Free(nil)
	assert.Equal(t, before, page.Outstanding())
}

func TestHeap_Stats(t *testing.T) {
	h := NewHeap()
	defer func() { require.NoError(t, h.Close()) }()

	a, err := h.Alloc(8)
	require.NoError(t, err)
	b, err := h.Alloc(100)
	require.NoError(t, err)
	c, err := h.Alloc(5000)
	require.NoError(t, err)

	stats := h.Stats()
	assert.Equal(t, uint64(3), stats.Allocs)
	assert.Equal(t, uint64(1), stats.LargeAllocs)
	assert.Equal(t, uint64(2), stats.ArenasCreated)
	assert.Equal(t, 2, stats.ActiveArenas)

	h.Free(a)
	h.Free(b)
	h.Free(c)

	stats = h.Stats()
	assert.Equal(t, uint64(3), stats.Frees)
	assert.Equal(t, uint64(1), stats.PagesReclaimed)
}

func TestHeap_IDs(t *testing.T) {
	a, b := NewHeap(), NewHeap()
	defer a.Close()
	defer b.Close()

	assert.NotZero(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func BenchmarkHeapAllocFree(b *testing.B) {
	for _, size := range []uintptr{8, 64, 1024, 8192} {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			h := NewHeap()
			defer h.Close()

			b.ReportAllocs()
			for b.Loop() {
				p, err := h.Alloc(size)
				if err != nil {
					b.Fatal(err)
				}
				h.Free(p)
			}
		})
	}
}

func TestHeap_CloseReportsReclaimedPages(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	h := NewHeap(WithMetricsCollector(metrics))

	a, err := h.Alloc(8)
	require.NoError(t, err)
	b, err := h.Alloc(200)
	require.NoError(t, err)
	h.Free(a)

	require.NoError(t, h.Close())

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.ArenasSealed)
	assert.Equal(t, int64(1), stats.PagesReclaimed, "fully released arena unmapped by Close")

	h.Free(b)

	stats = metrics.GetStats()
	assert.Equal(t, int64(2), stats.PagesReclaimed)
	assert.Equal(t, uint64(stats.PagesReclaimed), h.Stats().PagesReclaimed)
}
