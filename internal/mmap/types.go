package mmap

import "errors"

// PageSize is the allocation granule assumed by the allocator. Operating
// systems with larger pages still return mappings aligned to at least this
// boundary.
const PageSize = 4096

var (
	// ErrInvalidSize is returned when a mapping length is zero or negative.
	ErrInvalidSize = errors.New("mmap: invalid mapping size")
	// ErrNilBase is returned when unmapping a nil base address.
	ErrNilBase = errors.New("mmap: nil base address")
)
