//go:build windows

package page

import (
	"fmt"
	"os"
)

// fatal stops the process with a panic on a fresh goroutine, which no caller
// can recover.
func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "pagealloc: fatal: %s\n", msg)

	block := make(chan struct{})
	go func() {
		panic("pagealloc: fatal: " + msg)
	}()
	<-block
}
