package page

import (
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pagealloc/internal/mmap"
)

const fatalChildEnv = "PAGEALLOC_PAGE_FATAL_CHILD"

func TestUnmap_UnderflowAborts(t *testing.T) {
	if os.Getenv(fatalChildEnv) == "1" {
		h, err := Map(mmap.PageSize, 0)
		if err != nil {
			os.Exit(3)
		}
		if err := Unmap(h); err != nil {
			os.Exit(4)
		}
		// Second release of the same region: the counter is already zero.
		_ = Unmap(h)
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestUnmap_UnderflowAborts$")
	cmd.Env = append(os.Environ(), fatalChildEnv+"=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, "child must terminate abnormally, output:\n%s", out)
	assert.NotEqual(t, 3, exitErr.ExitCode())
	assert.NotEqual(t, 4, exitErr.ExitCode())
	assert.Contains(t, string(out), "outstanding page counter underflow")
	if runtime.GOOS != "windows" {
		assert.Contains(t, string(out), "SIGTRAP")
	}
}
