package page

import (
	"unsafe"

	"github.com/hupe1980/pagealloc/internal/mmap"
)

// Header is the overlay written at the base of every mapped region.
// Its size is a multiple of 8 so payloads that follow it stay 8-byte aligned.
type Header struct {
	mappedBytes uint64 // length passed to the mapper
	slotSize    uint64 // 0 for large blocks, item size for arenas
	charged     uint64 // bytes charged to the memory budget
}

// HeaderSize is the number of bytes reserved for Header at a region's base.
const HeaderSize = unsafe.Sizeof(Header{})

// HeaderOf returns the header of the region containing p by rounding p down
// to the nearest page boundary. p must lie in the first page of a live
// region, which holds for every address the allocator hands out.
func HeaderOf(p unsafe.Pointer) *Header {
	return (*Header)(unsafe.Add(p, -int(uintptr(p)%mmap.PageSize)))
}

// MappedBytes returns the length of the mapping.
func (h *Header) MappedBytes() uintptr { return uintptr(h.mappedBytes) }

// SlotSize returns the arena item size, or 0 for a large block.
func (h *Header) SlotSize() uintptr { return uintptr(h.slotSize) }

// IsLarge reports whether the region is a large block.
func (h *Header) IsLarge() bool { return h.slotSize == 0 }

// Base returns the region's base address.
func (h *Header) Base() unsafe.Pointer { return unsafe.Pointer(h) }

// Payload returns the first address after the header.
func (h *Header) Payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), HeaderSize)
}
