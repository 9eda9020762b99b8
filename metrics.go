package pagealloc

import (
	"sync/atomic"
)

// LargeClass is the class index reported for requests served by a dedicated
// large block.
const LargeClass = -1

// MetricsCollector defines an interface for collecting allocator metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Collectors are called on the allocation and release paths, possibly from
// many goroutines at once, and must be cheap and safe for concurrent use.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation. class is the size-class
	// index or LargeClass, err is nil if successful.
	RecordAlloc(class int, size uintptr, err error)

	// RecordFree is called after each release. reclaimed reports whether the
	// owning region was unmapped.
	RecordFree(class int, reclaimed bool)

	// RecordArenaCreated is called when a heap maps a new arena.
	RecordArenaCreated(class int)

	// RecordSeal is called for every arena a heap retires on Close or by its
	// cleanup. reclaimed reports whether the page was unmapped right away;
	// otherwise the last release reports it through RecordFree.
	RecordSeal(class int, reclaimed bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, uintptr, error) {}
func (NoopMetricsCollector) RecordFree(int, bool)            {}
func (NoopMetricsCollector) RecordArenaCreated(int)          {}
func (NoopMetricsCollector) RecordSeal(int, bool)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount     atomic.Int64
	AllocErrors    atomic.Int64
	AllocBytes     atomic.Int64
	LargeCount     atomic.Int64
	FreeCount      atomic.Int64
	PagesReclaimed atomic.Int64
	ArenasCreated  atomic.Int64
	ArenasSealed   atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(class int, size uintptr, err error) {
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocCount.Add(1)
	b.AllocBytes.Add(int64(size))
	if class == LargeClass {
		b.LargeCount.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(class int, reclaimed bool) {
	b.FreeCount.Add(1)
	if reclaimed {
		b.PagesReclaimed.Add(1)
	}
}

// RecordArenaCreated implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArenaCreated(class int) {
	b.ArenasCreated.Add(1)
}

// RecordSeal implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeal(class int, reclaimed bool) {
	b.ArenasSealed.Add(1)
	if reclaimed {
		b.PagesReclaimed.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:     b.AllocCount.Load(),
		AllocErrors:    b.AllocErrors.Load(),
		AllocBytes:     b.AllocBytes.Load(),
		LargeCount:     b.LargeCount.Load(),
		FreeCount:      b.FreeCount.Load(),
		PagesReclaimed: b.PagesReclaimed.Load(),
		ArenasCreated:  b.ArenasCreated.Load(),
		ArenasSealed:   b.ArenasSealed.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount     int64
	AllocErrors    int64
	AllocBytes     int64
	LargeCount     int64
	FreeCount      int64
	PagesReclaimed int64 // by releases and by sealing
	ArenasCreated  int64
	ArenasSealed   int64
}
