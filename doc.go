// Package pagealloc provides a page-backed, size-segregated memory allocator
// built directly on anonymous operating-system mappings.
//
// Memory handed out by pagealloc lives outside the Go heap. It is never
// scanned or moved by the garbage collector and must be released explicitly.
// Do not store pointers to Go-managed memory in it.
//
// # Quick Start
//
// Package-level functions borrow per-processor heaps from a pool:
//
//	p := pagealloc.Malloc(64)
//	if p == nil {
//	    // out of memory
//	}
//	defer pagealloc.Free(p)
//
// A goroutine that allocates a lot can own a Heap instead:
//
//	h := pagealloc.NewHeap()
//	defer h.Close()
//
//	p, err := h.Alloc(200)
//	if err != nil {
//	    return err
//	}
//	h.Free(p)
//
// # Layout
//
// Requests up to 1024 bytes are rounded up to one of eight size classes
// (8, 16, 32, ..., 1024 bytes). Each class is served by an arena: a single
// 4096-byte page with a header followed by fixed-size slots handed out by
// bumping a cursor. Slots are never reused. Once an arena is full and every
// slot has been released, the whole page is returned to the operating system.
//
// Larger requests get a dedicated mapping that is unmapped when the block is
// released.
//
// Every region starts with a header at a page boundary, so Free finds the
// owning region of an address by rounding it down. Free works from any
// goroutine and takes no locks.
//
// # Heaps
//
// A Heap keeps the current arena of every class. It belongs to one goroutine
// at a time. Close seals its arenas: fully released ones are unmapped at once,
// the others when their last slot comes back. A Heap that is dropped without
// Close is sealed by a cleanup after garbage collection.
//
// # Memory Budget
//
// SetMemoryLimit caps the bytes mapped by the process through this package.
// Requests that would exceed it fail with ErrOutOfMemory:
//
//	if err := pagealloc.SetMemoryLimit(64 << 20); err != nil {
//	    return err
//	}
//
// # Observability
//
// Heaps accept a MetricsCollector and a structured Logger:
//
//	metrics := &pagealloc.BasicMetricsCollector{}
//	h := pagealloc.NewHeap(
//	    pagealloc.WithMetricsCollector(metrics),
//	    pagealloc.WithLogLevel(slog.LevelDebug),
//	)
//
// OutstandingPages reports the number of live mappings and drops back to its
// starting value once every allocation is released and every heap is closed.
//
// # Fatal Errors
//
// Releasing more regions than were mapped means the accounting is corrupt.
// The process is terminated with SIGTRAP (an unrecoverable panic on Windows).
// Double frees and foreign pointers are undefined behavior.
package pagealloc
