//go:build unix

package page

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// fatal stops the process with SIGTRAP. The Go runtime turns an unhandled
// SIGTRAP into a crash with a full goroutine dump.
func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "pagealloc: fatal: %s\n", msg)
	_ = unix.Kill(unix.Getpid(), unix.SIGTRAP)

	// Only reached when the program subscribed to SIGTRAP itself.
	time.Sleep(time.Second)
	os.Exit(2)
}
