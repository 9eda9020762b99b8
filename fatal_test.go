package pagealloc

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doubleFreeEnv = "PAGEALLOC_DOUBLE_FREE_CHILD"

// A double free is undefined; in practice it kills the process.
func TestFree_DoubleFreeCrashesProcess(t *testing.T) {
	if os.Getenv(doubleFreeEnv) == "1" {
		h := NewHeap()
		p, err := h.Alloc(64 << 10)
		if err != nil {
			os.Exit(3)
		}
		h.Free(p)
		h.Free(p)
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestFree_DoubleFreeCrashesProcess$")
	cmd.Env = append(os.Environ(), doubleFreeEnv+"=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, "child must terminate abnormally, output:\n%s", out)
	assert.NotEqual(t, 3, exitErr.ExitCode())

	// The second release reads the header of a region that is already
	// unmapped. If the address was mapped again in between, the page counter
	// underflows instead.
	assert.Regexp(t, `unexpected fault address|outstanding page counter underflow`, string(out))
}
