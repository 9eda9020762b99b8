package pagealloc_test

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/hupe1980/pagealloc"
)

// Example demonstrates the package-level allocation pair.
func Example() {
	p := pagealloc.Malloc(16)
	if p == nil {
		log.Fatal("out of memory")
	}
	defer pagealloc.Free(p)

	v := (*[2]uint64)(p)
	v[0], v[1] = 40, 2

	fmt.Println(v[0] + v[1])
	// Output: 42
}

// ExampleHeap demonstrates an owned heap with metrics.
func ExampleHeap() {
	metrics := &pagealloc.BasicMetricsCollector{}
	h := pagealloc.NewHeap(pagealloc.WithMetricsCollector(metrics))

	small, err := h.Alloc(24)
	if err != nil {
		log.Fatal(err)
	}
	large, err := h.Alloc(10_000)
	if err != nil {
		log.Fatal(err)
	}

	buf := unsafe.Slice((*byte)(large), 10_000)
	copy(buf, "hello")

	h.Free(small)
	h.Free(large)
	if err := h.Close(); err != nil {
		log.Fatal(err)
	}

	stats := metrics.GetStats()
	fmt.Printf("allocs: %d, large: %d, reclaimed: %d\n", stats.AllocCount, stats.LargeCount, h.Stats().PagesReclaimed)
	// Output: allocs: 2, large: 1, reclaimed: 2
}
