package pagealloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	var m BasicMetricsCollector

	m.RecordAlloc(0, 8, nil)
	m.RecordAlloc(LargeClass, 5000, nil)
	m.RecordAlloc(3, 64, ErrOutOfMemory)
	m.RecordArenaCreated(0)
	m.RecordFree(0, false)
	m.RecordFree(LargeClass, true)
	m.RecordSeal(1, true)
	m.RecordSeal(2, false)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats.AllocCount)
	assert.Equal(t, int64(1), stats.AllocErrors)
	assert.Equal(t, int64(5008), stats.AllocBytes)
	assert.Equal(t, int64(1), stats.LargeCount)
	assert.Equal(t, int64(2), stats.FreeCount)
	assert.Equal(t, int64(2), stats.PagesReclaimed)
	assert.Equal(t, int64(1), stats.ArenasCreated)
	assert.Equal(t, int64(2), stats.ArenasSealed)
}

func TestWithMetricsCollector(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	h := NewHeap(WithMetricsCollector(metrics))

	for range 3 {
		p, err := h.Alloc(1024)
		require.NoError(t, err)
		defer h.Free(p)
	}
	require.NoError(t, h.Close())

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.AllocCount)
	assert.Equal(t, int64(1), stats.ArenasCreated)
	assert.Zero(t, stats.FreeCount)
}

func TestWithMetricsCollector_Nil(t *testing.T) {
	h := NewHeap(WithMetricsCollector(nil))
	defer h.Close()

	p, err := h.Alloc(8)
	require.NoError(t, err)
	h.Free(p)
}
