//go:build unix

// File: pool/allocator_unix.go
//
// Package pool: unix block allocation through anonymous private mappings.
// Each block is its own mapping so it can be returned to the OS as soon as
// the reader has consumed it.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator maps one anonymous region per block.
type MmapAllocator struct{}

// Alloc maps size bytes of zeroed, private, read-write memory.
func (MmapAllocator) Alloc(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

// Free unmaps a region returned by Alloc.
func (MmapAllocator) Free(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// NewAllocator returns the platform block allocator.
func NewAllocator() Allocator { return MmapAllocator{} }

// PageSize returns the OS page size, the default block size.
func PageSize() int { return unix.Getpagesize() }
