// Package mmap provides anonymous, page-aligned memory mappings outside the
// Go heap.
//
// # Overview
//
// Every region handed out by the allocator is backed by a private anonymous
// mapping obtained straight from the operating system. The garbage collector
// never scans or moves this memory, so addresses stay stable until the region
// is explicitly unmapped.
//
// # Usage
//
//	base, err := mmap.MapAnon(mmap.PageSize)
//	if err != nil { ... }
//	defer mmap.UnmapAnon(base, mmap.PageSize)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, munmap(2)
//   - Windows: VirtualAlloc(MEM_RESERVE|MEM_COMMIT) and VirtualFree(MEM_RELEASE)
//
// Fresh mappings are zero-filled on every platform.
//
// # Thread Safety
//
// MapAnon and UnmapAnon are safe for concurrent use. A region must be unmapped
// exactly once, with the same length it was mapped with.
package mmap
