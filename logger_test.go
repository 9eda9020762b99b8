package pagealloc

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		logger.WithHeap(7).LogArenaCreated(2, 32)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "arena created", record["msg"])
		assert.Equal(t, float64(7), record["heap"])
		assert.Equal(t, float64(2), record["class"])
		assert.Equal(t, float64(32), record["item_size"])
	})

	t.Run("NilHandler", func(t *testing.T) {
		assert.NotNil(t, NewLogger(nil))
	})

	t.Run("Noop", func(t *testing.T) {
		logger := NoopLogger()
		logger.LogUnmapFailed(errors.New("boom"))
		logger.LogHeapClosed(1, 1, nil)
	})

	t.Run("AllocFailedThrottled", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, nil))

		for range 100 {
			logger.LogAllocFailed(64, ErrOutOfMemory)
		}

		assert.Equal(t, 3, strings.Count(buf.String(), "allocation failed"))
	})

	t.Run("HeapClosedError", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, nil))

		logger.LogHeapClosed(3, 1, errors.New("unmap: invalid argument"))
		assert.Contains(t, buf.String(), "level=ERROR")
		assert.Contains(t, buf.String(), "sealed=3")
	})
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := NewHeap(WithLogger(logger))
	p, err := h.Alloc(4000)
	require.NoError(t, err)
	h.Free(p)
	require.NoError(t, h.Close())

	out := buf.String()
	assert.Contains(t, out, "large block mapped")
	assert.Contains(t, out, "page reclaimed")
	assert.Contains(t, out, "heap closed")
}
