//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMapAnon(size int) (unsafe.Pointer, error) {
	// VirtualAlloc with MEM_COMMIT is demand-paged, like an anonymous mmap.
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	return unsafe.Pointer(addr), nil //nolint:govet // address returned by the OS, outside the Go heap
}

func osUnmap(base unsafe.Pointer, _ int) error {
	// MEM_RELEASE requires a zero size and frees the whole reservation.
	return windows.VirtualFree(uintptr(base), 0, windows.MEM_RELEASE)
}

func osPageSize() int {
	return windows.Getpagesize()
}
