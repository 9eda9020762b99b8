package arena

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/pagealloc/internal/mmap"
	"github.com/hupe1980/pagealloc/internal/page"
)

// ErrInvalidItemSize is returned when an item size is not a positive
// multiple of 8 that fits in the payload area.
var ErrInvalidItemSize = errors.New("arena: invalid item size")

// Arena is the overlay written at the base of an arena page. Its fields
// follow the page header; slots start at payloadOffset.
//
// live counts the issued slots not yet released, plus one while the owner
// holds the arena. The owner drops its reference when the arena fills up or
// is sealed. Whoever moves live to zero unmaps the page, and nothing reads
// the page after its own decrement.
type Arena struct {
	hdr    page.Header
	live   atomic.Int64
	freed  atomic.Uint64 // slots released so far
	used   uint64        // bytes handed out, header included; owner only
	next   uint64        // bump cursor, relative to the payload area; owner only
	sealed atomic.Uint32
}

const payloadOffset = (unsafe.Sizeof(Arena{}) + 7) &^ 7

// Stats is a snapshot of an arena's counters.
type Stats struct {
	ItemSize  uintptr
	Capacity  int
	Issued    uint64
	Freed     uint64
	BytesUsed uint64 // header included
	Sealed    bool
}

// Create maps one page and prepares it as an arena of itemSize slots.
func Create(itemSize uintptr) (*Arena, error) {
	if itemSize == 0 || itemSize%8 != 0 || payloadOffset+itemSize > mmap.PageSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidItemSize, itemSize)
	}

	h, err := page.Map(mmap.PageSize, itemSize)
	if err != nil {
		return nil, err
	}

	a := (*Arena)(unsafe.Pointer(h))
	a.live.Store(1)
	a.used = uint64(payloadOffset)
	a.next = 0
	return a, nil
}

// FromHeader reinterprets the header of an arena page as its Arena.
// h.SlotSize() must be non-zero.
func FromHeader(h *page.Header) *Arena {
	return (*Arena)(unsafe.Pointer(h))
}

// Header returns the page header of the arena.
func (a *Arena) Header() *page.Header {
	return &a.hdr
}

// ItemSize returns the slot size.
func (a *Arena) ItemSize() uintptr {
	return a.hdr.SlotSize()
}

// Capacity returns the number of slots a fresh arena of itemSize holds.
func Capacity(itemSize uintptr) int {
	return int((mmap.PageSize - payloadOffset) / itemSize)
}

// Full reports whether the next bump step would cross the page end, or the
// arena was sealed. Only the owner may call it, and only before the arena
// filled up.
func (a *Arena) Full() bool {
	if a.sealed.Load() != 0 {
		return true
	}
	return a.used+uint64(a.ItemSize()) > mmap.PageSize
}

// Alloc returns the next free slot, or nil when the arena is full.
//
// last reports that this allocation filled the arena. The owner's reference
// is dropped with it: from then on the page belongs to the outstanding slots
// and the owner must not touch the arena again.
func (a *Arena) Alloc() (p unsafe.Pointer, last bool) {
	if a.Full() {
		return nil, false
	}

	size := uint64(a.ItemSize())
	p = unsafe.Add(unsafe.Pointer(a), payloadOffset+uintptr(a.next))

	a.live.Add(1)
	a.used += size
	if uint64(payloadOffset)+a.next+size > mmap.PageSize {
		panic(fmt.Sprintf("arena: bump cursor %d past page end", a.next+size))
	}
	a.next += size

	if a.used+size > mmap.PageSize {
		a.sealed.Store(1)
		// p is still outstanding, so this cannot reach zero.
		a.live.Add(-1)
		return p, true
	}
	return p, false
}

// Issued returns the number of slots handed out. Owner only.
func (a *Arena) Issued() uint64 {
	return a.next / uint64(a.ItemSize())
}

// Freed returns the number of slots released.
func (a *Arena) Freed() uint64 {
	return a.freed.Load()
}

// Release counts one returned slot. It returns true exactly once, for the
// release that leaves an arena without owner and without outstanding slots;
// the caller must then unmap the page. The arena must not be touched after
// Release returns.
func (a *Arena) Release() bool {
	a.freed.Add(1)
	return a.live.Add(-1) == 0
}

// Seal drops the owner's reference to an arena that has not filled up, so
// the arena becomes reclaimable by count alone. It returns true when every
// issued slot is already back; the caller must then unmap the page.
// Otherwise the last Release reports it. Sealing twice is a no-op.
func (a *Arena) Seal() bool {
	if !a.sealed.CompareAndSwap(0, 1) {
		return false
	}
	return a.live.Add(-1) == 0
}

// Stats returns a snapshot of the arena counters. Owner only.
func (a *Arena) Stats() Stats {
	return Stats{
		ItemSize:  a.ItemSize(),
		Capacity:  Capacity(a.ItemSize()),
		Issued:    a.Issued(),
		Freed:     a.Freed(),
		BytesUsed: a.used,
		Sealed:    a.sealed.Load() != 0,
	}
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf("Arena{item: %d, issued: %d/%d, freed: %d, used: %d B, sealed: %t}",
		s.ItemSize, s.Issued, s.Capacity, s.Freed, s.BytesUsed, s.Sealed)
}
