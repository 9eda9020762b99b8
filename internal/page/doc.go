// Package page implements the page region model shared by every allocation
// strategy.
//
// A region is a page-aligned anonymous mapping whose first bytes hold a
// Header. The header records the mapped length, needed to unmap correctly,
// and a discriminator: a zero slot size marks a large block holding exactly
// one allocation, a non-zero slot size marks a size-class arena.
//
// Because every arena spans exactly one page and every large block starts
// its header on a page boundary, the header of any address handed out by the
// allocator is found by rounding that address down to the page boundary
// (HeaderOf).
//
// # Accounting
//
// A process-wide atomic counter tracks regions that are mapped but not yet
// unmapped. Unmapping with the counter already at zero means more regions
// were released than were ever mapped; the process is aborted on the spot so
// that a debugger or crash reporter sees the faulting call site.
package page
