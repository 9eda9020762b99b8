// Package resource implements an optional budget on the bytes the allocator
// maps from the operating system.
//
// # Memory Budget
//
// The Controller uses a weighted semaphore for the hard limit and atomic
// counters for usage tracking. AcquireMemory never blocks: it returns
// ErrMemoryLimitExceeded immediately when the limit would be exceeded, and the
// allocator reports that to its caller as an out-of-memory condition.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64 MiB of mappings
//	})
//	_ = pagealloc.SetResourceController(rc)
//
// A nil *Controller is valid and tracks nothing.
package resource
