package pagealloc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pagealloc/internal/arena"
	"github.com/hupe1980/pagealloc/internal/page"
	"github.com/hupe1980/pagealloc/resource"
)

var (
	// ErrOutOfMemory is returned when the operating system refuses a mapping
	// or the memory budget is spent. Allocations are never retried.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrClosed is returned when allocating from a closed Heap.
	ErrClosed = errors.New("heap is closed")

	// ErrBudgetInUse is returned when the memory budget is changed while
	// pages are outstanding.
	ErrBudgetInUse = errors.New("memory budget cannot change while pages are outstanding")

	// ErrMemoryLimitExceeded is wrapped by ErrOutOfMemory when the installed
	// budget refused a mapping.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// AllocError describes a failed allocation.
//
// The original underlying error can be accessed via errors.Unwrap.
type AllocError struct {
	Size  uintptr
	Class int // size-class index or LargeClass
	cause error
}

func (e *AllocError) Error() string {
	if e.Class == LargeClass {
		return fmt.Sprintf("allocation of %d bytes (large) failed: %v", e.Size, e.cause)
	}
	return fmt.Sprintf("allocation of %d bytes (%d-byte class) failed: %v", e.Size, arena.Classes[e.Class], e.cause)
}

func (e *AllocError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, page.ErrOutOfMemory) {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	if errors.Is(err, page.ErrBudgetInUse) {
		return fmt.Errorf("%w: %w", ErrBudgetInUse, err)
	}

	return err
}

func allocError(size uintptr, class int, err error) error {
	return &AllocError{Size: size, Class: class, cause: translateError(err)}
}
