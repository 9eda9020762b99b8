// Package arena implements size-class arenas: one page carved into
// fixed-size slots of a single size class.
//
// # Allocation
//
// Slots are handed out by bumping a cursor through the payload area. There is
// no free list; a released slot is only counted, never reused.
//
// # Reclamation
//
// An arena is reclaimable once it can take no further allocations (Full) and
// every slot it issued has been released. Both conditions are folded into one
// atomic reference count: each outstanding slot holds a reference, and the
// owner holds one more until the allocation that fills the arena, or until it
// seals the arena. The operation that drops the count to zero reports true
// and its caller unmaps the whole page. An arena that never fills is only
// retired when its owner seals it.
//
// # Concurrency Model
//
// Alloc, Full, Issued, Stats and Seal belong to the owning frontend and must
// not run concurrently with each other, nor after the owner gave up its
// reference. Release may run on any goroutine, concurrently with Alloc, Seal
// and other releases. It performs two atomic additions on the page and never
// reads it afterwards, because a concurrent Release may unmap it.
package arena
