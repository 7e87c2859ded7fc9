// File: pool/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"sync"

	"github.com/momentics/nibblepipe/api"
)

// Allocator hands out and reclaims fixed-size memory regions.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte) error
}

// HeapAllocator allocates blocks on the Go heap.
type HeapAllocator struct{}

// Alloc returns a zeroed slice of size bytes.
func (HeapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("alloc %d bytes: %w", size, api.ErrInvalidArgument)
	}
	return make([]byte, size), nil
}

// Free is a no-op; the garbage collector reclaims the slice.
func (HeapAllocator) Free([]byte) error { return nil }

// limitAllocator caps the number of live regions.
type limitAllocator struct {
	Allocator
	mu   sync.Mutex
	max  int
	live int
}

// Limit wraps a so that at most max regions are outstanding. Allocations
// beyond the cap fail with api.ErrResourceExhausted. max <= 0 disables the cap.
func Limit(a Allocator, max int) Allocator {
	if max <= 0 {
		return a
	}
	return &limitAllocator{Allocator: a, max: max}
}

func (l *limitAllocator) Alloc(size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live >= l.max {
		return nil, fmt.Errorf("block limit %d reached: %w", l.max, api.ErrResourceExhausted)
	}
	b, err := l.Allocator.Alloc(size)
	if err != nil {
		return nil, err
	}
	l.live++
	return b, nil
}

func (l *limitAllocator) Free(b []byte) error {
	l.mu.Lock()
	l.live--
	l.mu.Unlock()
	return l.Allocator.Free(b)
}
