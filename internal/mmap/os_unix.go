//go:build unix

package mmap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func osMapAnon(size int) (unsafe.Pointer, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | unix.MAP_PRIVATE

	data, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, err
	}

	return unsafe.Pointer(unsafe.SliceData(data)), nil
}

func osUnmap(base unsafe.Pointer, size int) error {
	// unix.Munmap looks the mapping up by its last byte, so the rebuilt slice
	// must span exactly the original length.
	return unix.Munmap(unsafe.Slice((*byte)(base), size))
}

func osPageSize() int {
	return unix.Getpagesize()
}
