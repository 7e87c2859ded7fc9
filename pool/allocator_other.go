//go:build !unix

// File: pool/allocator_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// NewAllocator returns the platform block allocator.
func NewAllocator() Allocator { return HeapAllocator{} }

// PageSize returns the default block size.
func PageSize() int { return 4096 }
