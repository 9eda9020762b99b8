package page

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/hupe1980/pagealloc/internal/mmap"
	"github.com/hupe1980/pagealloc/resource"
)

var (
	// ErrOutOfMemory is returned when a region cannot be mapped, either
	// because the operating system refused or the memory budget is spent.
	ErrOutOfMemory = errors.New("page: out of memory")
	// ErrInvalidLength is returned when a region is too small to hold its header.
	ErrInvalidLength = errors.New("page: region smaller than header")
	// ErrBudgetInUse is returned when the budget is swapped while regions are live.
	ErrBudgetInUse = errors.New("page: regions outstanding, budget cannot change")
)

var outstanding struct {
	_ cpu.CacheLinePad
	n atomic.Int64
	_ cpu.CacheLinePad
}

// swapping parks the outstanding counter while SetController replaces the
// budget. Map waits for it to clear; Unmap treats it as an underflow.
const swapping = math.MinInt64 / 2

var budget atomic.Pointer[resource.Controller]

// Outstanding returns the number of regions currently mapped.
func Outstanding() int64 {
	return max(outstanding.n.Load(), 0)
}

// SetController installs c as the process-wide memory budget. A nil c
// removes the budget. The budget can only change while no region is mapped
// or being mapped, so every charge is refunded to the controller that took
// it.
func SetController(c *resource.Controller) error {
	if !outstanding.n.CompareAndSwap(0, swapping) {
		return ErrBudgetInUse
	}
	budget.Store(c)
	outstanding.n.Store(0)
	return nil
}

// reserve counts a region before it is mapped, so the budget cannot change
// between charging it and refunding it.
func reserve() {
	for {
		n := outstanding.n.Load()
		if n >= 0 && outstanding.n.CompareAndSwap(n, n+1) {
			return
		}
		if n < 0 {
			runtime.Gosched()
		}
	}
}

// Controller returns the installed memory budget, or nil.
func Controller() *resource.Controller {
	return budget.Load()
}

// Map maps length bytes of zeroed memory and writes a header recording the
// length and slot size. Failures are wrapped in ErrOutOfMemory and never
// retried.
func Map(length, slotSize uintptr) (*Header, error) {
	if length < HeaderSize {
		return nil, ErrInvalidLength
	}
	if length > math.MaxInt-mmap.PageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the address space", ErrOutOfMemory, length)
	}

	reserve()

	var charged int64
	c := budget.Load()
	if c != nil {
		charged = int64(roundUp(length, mmap.PageSize))
		if err := c.AcquireMemory(charged); err != nil {
			outstanding.n.Add(-1)
			return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		}
	}

	base, err := mmap.MapAnon(int(length))
	if err != nil {
		c.ReleaseMemory(charged)
		outstanding.n.Add(-1)
		return nil, fmt.Errorf("%w: map %d bytes: %w", ErrOutOfMemory, length, err)
	}

	h := (*Header)(base)
	h.mappedBytes = uint64(length)
	h.slotSize = uint64(slotSize)
	h.charged = uint64(charged)
	return h, nil
}

// Unmap releases the region owning h. The outstanding counter is checked
// before the header is read, so releasing more regions than were mapped
// aborts the process instead of faulting on an unmapped header.
//
// If the operating system refuses the unmap, the region is still counted as
// outstanding and its charge stays with the budget.
func Unmap(h *Header) error {
	// Loaded while h still counts as outstanding: this is the controller that
	// charged it.
	c := budget.Load()

	if outstanding.n.Add(-1) < 0 {
		fatal("outstanding page counter underflow: more regions released than mapped")
	}

	length := h.mappedBytes
	charged := h.charged

	if err := mmap.UnmapAnon(unsafe.Pointer(h), int(length)); err != nil {
		reserve()
		return fmt.Errorf("page: unmap %d bytes at %p: %w", length, h, err)
	}

	if charged > 0 {
		c.ReleaseMemory(int64(charged))
	}
	return nil
}

// UnmapAddr releases the region containing p.
func UnmapAddr(p unsafe.Pointer) error {
	return Unmap(HeaderOf(p))
}

func roundUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
