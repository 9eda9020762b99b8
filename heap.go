package pagealloc

import (
	"errors"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/pagealloc/internal/arena"
	"github.com/hupe1980/pagealloc/internal/page"
)

var heapIDs atomic.Uint64

// HeapStats is a snapshot of the counters of one Heap.
type HeapStats struct {
	Allocs         uint64 // successful allocations
	LargeAllocs    uint64 // allocations served by a dedicated large block
	Frees          uint64 // releases through this heap
	ArenasCreated  uint64
	PagesReclaimed uint64 // regions unmapped by releases through this heap
	ActiveArenas   int    // classes with a current arena
}

// classTable holds the current arena of every size class. It lives apart
// from the Heap so a cleanup can seal it once the Heap is unreachable.
type classTable struct {
	current [arena.NumClasses]*arena.Arena
}

// seal retires every current arena. Arenas whose slots are all back are
// unmapped now; the others are unmapped by their last release.
func (t *classTable) seal(metrics MetricsCollector, logger *Logger) (sealed, reclaimed int, err error) {
	var errs []error
	for class, a := range t.current {
		if a == nil {
			continue
		}
		t.current[class] = nil
		sealed++

		ok := a.Seal()
		if ok {
			reclaimed++
			if uerr := page.Unmap(a.Header()); uerr != nil {
				logger.LogUnmapFailed(uerr)
				errs = append(errs, uerr)
			}
		}
		metrics.RecordSeal(class, ok)
	}
	return sealed, reclaimed, errors.Join(errs...)
}

type cleanupArg struct {
	table   *classTable
	metrics MetricsCollector
	logger  *Logger
}

func sealOnCleanup(arg cleanupArg) {
	sealed, reclaimed, err := arg.table.seal(arg.metrics, arg.logger)
	arg.logger.LogHeapClosed(sealed, reclaimed, err)
}

// Heap is an allocator frontend. It routes each request to the current arena
// of its size class, or to a dedicated large block, without taking locks.
//
// A Heap is owned by one goroutine at a time: Alloc, Free and Close must not
// run concurrently on the same Heap. Memory allocated from one Heap may be
// released from any goroutine with the package-level Free.
type Heap struct {
	id      uint64
	table   *classTable
	logger  *Logger
	metrics MetricsCollector
	closed  bool
	cleanup runtime.Cleanup
	stats   HeapStats
}

// NewHeap creates a Heap. Arenas are mapped lazily on first use.
//
// A Heap that becomes unreachable without Close is sealed by a cleanup after
// the next garbage collections.
func NewHeap(opts ...Option) *Heap {
	o := newOptions(opts)

	h := &Heap{
		id:      heapIDs.Add(1),
		table:   &classTable{},
		metrics: o.metricsCollector,
	}
	h.logger = o.logger.WithHeap(h.id)
	h.cleanup = runtime.AddCleanup(h, sealOnCleanup, cleanupArg{
		table:   h.table,
		metrics: h.metrics,
		logger:  h.logger,
	})

	return h
}

// ID returns the heap identifier used in log records.
func (h *Heap) ID() uint64 {
	return h.id
}

// Alloc returns the address of at least size bytes, 8-byte aligned.
// Requests above the largest size class get a dedicated mapping. A size of 0
// is served by the smallest class.
func (h *Heap) Alloc(size uintptr) (unsafe.Pointer, error) {
	if h.closed {
		return nil, ErrClosed
	}

	class, ok := arena.ClassFor(size)
	if !ok {
		return h.allocLarge(size)
	}

	a := h.table.current[class]
	if a == nil || a.Full() {
		na, err := arena.Create(arena.Classes[class])
		if err != nil {
			err = allocError(size, class, err)
			h.metrics.RecordAlloc(class, size, err)
			h.logger.LogAllocFailed(size, err)
			return nil, err
		}
		h.table.current[class] = na
		a = na

		h.stats.ArenasCreated++
		h.metrics.RecordArenaCreated(class)
		h.logger.LogArenaCreated(class, arena.Classes[class])
	}

	p, last := a.Alloc()

	// The filling allocation hands the page over to its outstanding slots.
	// Any of them may unmap it from another goroutine, so the table lets go
	// now and the arena is not touched again.
	if last {
		h.table.current[class] = nil
		h.logger.LogArenaRetired(class, uint64(arena.Capacity(arena.Classes[class])))
	}

	h.stats.Allocs++
	h.metrics.RecordAlloc(class, size, nil)
	return p, nil
}

func (h *Heap) allocLarge(size uintptr) (unsafe.Pointer, error) {
	p, err := page.AllocLarge(size)
	if err != nil {
		err = allocError(size, LargeClass, err)
		h.metrics.RecordAlloc(LargeClass, size, err)
		h.logger.LogAllocFailed(size, err)
		return nil, err
	}

	h.stats.Allocs++
	h.stats.LargeAllocs++
	h.metrics.RecordAlloc(LargeClass, size, nil)
	h.logger.LogLargeMapped(size)
	return p, nil
}

// Free releases memory returned by Alloc or Malloc. p must not have been
// released before; releasing foreign or stale addresses is undefined.
// Free(nil) is a no-op. Free is allowed after Close.
func (h *Heap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	r := release(p, h.metrics, h.logger)

	h.stats.Frees++
	if r.reclaimed {
		h.stats.PagesReclaimed++
		if r.class != LargeClass && h.table.current[r.class] == arena.FromHeader(r.hdr) {
			h.table.current[r.class] = nil
		}
	}
}

// Close retires the current arena of every class. Arenas whose slots are all
// released are unmapped immediately, the rest by their last release.
// Close is idempotent; Alloc fails with ErrClosed afterwards.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.cleanup.Stop()

	sealed, reclaimed, err := h.table.seal(h.metrics, h.logger)
	h.stats.PagesReclaimed += uint64(reclaimed)
	h.logger.LogHeapClosed(sealed, reclaimed, err)
	return err
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() HeapStats {
	s := h.stats
	for _, a := range h.table.current {
		if a != nil {
			s.ActiveArenas++
		}
	}
	return s
}

type released struct {
	hdr       *page.Header
	class     int
	reclaimed bool
}

// release returns one allocation to its region and unmaps the region when it
// is no longer needed. It touches no frontend state and is safe on any
// goroutine.
func release(p unsafe.Pointer, metrics MetricsCollector, logger *Logger) released {
	hdr := page.HeaderOf(p)
	slotSize := hdr.SlotSize()

	r := released{hdr: hdr, class: LargeClass}
	if slotSize == 0 {
		r.reclaimed = true
	} else {
		r.class = arena.ClassOf(slotSize)
		r.reclaimed = arena.FromHeader(hdr).Release()
	}

	if r.reclaimed {
		if err := page.Unmap(hdr); err != nil {
			logger.LogUnmapFailed(err)
		} else {
			logger.LogPageReclaimed(slotSize)
		}
	}

	metrics.RecordFree(r.class, r.reclaimed)
	return r
}
