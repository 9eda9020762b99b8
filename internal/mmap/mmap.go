package mmap

import (
	"unsafe"
)

// MapAnon maps length bytes of fresh, zeroed, read-write anonymous memory and
// returns its page-aligned base address.
func MapAnon(length int) (unsafe.Pointer, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}
	return osMapAnon(length)
}

// UnmapAnon releases a mapping previously returned by MapAnon. length must
// equal the length passed to MapAnon.
func UnmapAnon(base unsafe.Pointer, length int) error {
	if base == nil {
		return ErrNilBase
	}
	if length <= 0 {
		return ErrInvalidSize
	}
	return osUnmap(base, length)
}

// OSPageSize reports the page size of the running system.
func OSPageSize() int {
	return osPageSize()
}
