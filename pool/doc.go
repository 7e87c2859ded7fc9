// Package pool
// Author: momentics <momentics@gmail.com>
//
// Page-backed storage for the acquisition pipeline.
// Blocks come from an Allocator (anonymous mmap on unix, Go heap elsewhere),
// live in an Arena where they are referenced by index, and are ordered by a
// PageQueue that tracks the consumed (head) and filled (tail) cursors.
// See allocator.go, arena.go, pagequeue.go for implementation details.
package pool
