// Package testutil provides testing utilities for pagealloc.
//
// This package is intended for use in tests, benchmarks and the stress tool
// only. It provides a seeded, goroutine-safe random source and helpers that
// generate allocation workloads spanning every size class and the large path.
//
//	rng := testutil.NewRNG(seed)
//	sizes := rng.Sizes(10_000, 64<<10) // mixed small and large requests
//	rng.ShufflePointers(ptrs)          // random release order
package testutil
