package pagealloc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/pagealloc/internal/page"
	"github.com/hupe1980/pagealloc/resource"
)

type defaults struct {
	opts  []Option
	o     options
	heaps *sync.Pool
}

var current atomic.Pointer[defaults]

func init() {
	SetDefaultOptions()
}

// SetDefaultOptions configures the heaps behind Malloc and Free. Heaps
// already handed out keep their options until they are dropped from the pool.
func SetDefaultOptions(opts ...Option) {
	d := &defaults{
		opts: opts,
		o:    newOptions(opts),
	}
	d.heaps = &sync.Pool{
		New: func() any { return NewHeap(d.opts...) },
	}
	current.Store(d)
}

// Malloc allocates size bytes from a pooled Heap and returns their address,
// or nil when memory cannot be mapped. The pool keeps heaps per processor,
// so concurrent callers do not contend on allocator state.
func Malloc(size uintptr) unsafe.Pointer {
	pool := current.Load().heaps

	h := pool.Get().(*Heap)
	p, _ := h.Alloc(size)
	pool.Put(h)

	return p
}

// Free releases memory returned by Malloc or by any Heap. It may be called
// from any goroutine. Free(nil) is a no-op.
func Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	d := current.Load()
	release(p, d.o.metricsCollector, d.o.logger)
}

// OutstandingPages returns the number of regions currently mapped. It drops
// to zero once every allocation is released and every heap is closed.
func OutstandingPages() uint64 {
	n := page.Outstanding()
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// SetMemoryLimit caps the bytes the allocator maps, in whole pages. A limit
// of 0 or less removes the cap. Mappings beyond the cap fail with
// ErrOutOfMemory. The limit can only change while no page is outstanding.
func SetMemoryLimit(bytes int64) error {
	if bytes <= 0 {
		return SetResourceController(nil)
	}
	return SetResourceController(resource.NewController(resource.Config{MemoryLimitBytes: bytes}))
}

// SetResourceController installs c as the memory budget, or removes the
// budget when c is nil. It fails with ErrBudgetInUse while pages are
// outstanding.
func SetResourceController(c *resource.Controller) error {
	return translateError(page.SetController(c))
}

// ResourceController returns the installed memory budget, or nil.
func ResourceController() *resource.Controller {
	return page.Controller()
}
