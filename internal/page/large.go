package page

import (
	"fmt"
	"math"
	"unsafe"
)

// AllocLarge maps a dedicated region for one allocation of size bytes and
// returns the payload address right after the header. The payload is 8-byte
// aligned because the region base is page aligned and HeaderSize is a
// multiple of 8.
func AllocLarge(size uintptr) (unsafe.Pointer, error) {
	if size > math.MaxInt-HeaderSize {
		return nil, fmt.Errorf("%w: request of %d bytes overflows", ErrOutOfMemory, size)
	}

	h, err := Map(size+HeaderSize, 0)
	if err != nil {
		return nil, err
	}
	return h.Payload(), nil
}
