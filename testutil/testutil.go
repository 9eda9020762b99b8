package testutil

import (
	"math/rand"
	"sync"
	"unsafe"

	"github.com/hupe1980/pagealloc/internal/arena"
)

// LargeShare is the fraction of generated sizes that take the large path.
const LargeShare = 0.1

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// ShufflePointers permutes ptrs in place.
func (r *RNG) ShufflePointers(ptrs []unsafe.Pointer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(len(ptrs), func(i, j int) { ptrs[i], ptrs[j] = ptrs[j], ptrs[i] })
}

// BoundarySizes returns the request sizes on both sides of every class
// boundary, plus zero and the first large size.
func BoundarySizes() []uintptr {
	sizes := []uintptr{0, 1}
	for _, c := range arena.Classes {
		sizes = append(sizes, c, c+1)
	}
	return sizes
}

// Sizes returns n request sizes. The first entries are BoundarySizes, so every
// class and the large path are hit once n covers them; the rest are random,
// with about LargeShare of them in (MaxClassSize, maxLarge].
func (r *RNG) Sizes(n int, maxLarge int) []uintptr {
	if maxLarge <= arena.MaxClassSize {
		maxLarge = arena.MaxClassSize + 1
	}

	sizes := make([]uintptr, 0, n)
	for _, s := range BoundarySizes() {
		if len(sizes) == n {
			return sizes
		}
		sizes = append(sizes, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for len(sizes) < n {
		if r.rand.Float64() < LargeShare {
			sizes = append(sizes, uintptr(arena.MaxClassSize+1+r.rand.Intn(maxLarge-arena.MaxClassSize)))
			continue
		}
		sizes = append(sizes, uintptr(1+r.rand.Intn(arena.MaxClassSize)))
	}
	return sizes
}
