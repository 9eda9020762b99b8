package main

import (
	"sync"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/pagealloc/internal/mmap"
)

// pageSet records the distinct pages that served allocations during a run.
// Page numbers exceed 32 bits on 64-bit address spaces, hence roaring64.
type pageSet struct {
	mu sync.Mutex
	rb *roaring64.Bitmap
}

func newPageSet() *pageSet {
	return &pageSet{rb: roaring64.New()}
}

// Add records the page containing p.
func (s *pageSet) Add(p unsafe.Pointer) {
	s.mu.Lock()
	s.rb.Add(uint64(uintptr(p)) / mmap.PageSize)
	s.mu.Unlock()
}

// Contains reports whether the page containing p was recorded.
func (s *pageSet) Contains(p unsafe.Pointer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rb.Contains(uint64(uintptr(p)) / mmap.PageSize)
}

// Cardinality returns the number of distinct pages.
func (s *pageSet) Cardinality() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rb.GetCardinality()
}
