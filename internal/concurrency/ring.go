// File: internal/concurrency/ring.go
// Package concurrency implements the interrupt-side byte ring.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ByteRing is a bounded circular byte buffer with head/tail cursors in
// [0, size). One slot is always kept empty so head == tail means empty.
// A short-held mutex forms its own exclusion domain, shared only by the
// producer (interrupt path) and the consumer (drain task).

package concurrency

import (
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/momentics/nibblepipe/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring = (*ByteRing)(nil)

// ByteRing is a single-producer, single-consumer byte ring.
type ByteRing struct {
	mu   sync.Mutex
	buf  []byte
	mask int
	head int // next byte to consume
	tail int // next slot to fill
	_    cpu.CacheLinePad
}

// NewByteRing allocates a ring of power-of-two size.
func NewByteRing(size int) *ByteRing {
	if size < 2 || size&(size-1) != 0 {
		panic("ring size must be a power of two >= 2")
	}
	return &ByteRing{
		buf:  make([]byte, size),
		mask: size - 1,
	}
}

func (r *ByteRing) count() int { return (r.tail - r.head) & r.mask }

func (r *ByteRing) space() int { return (r.head - r.tail - 1) & r.mask }

// Push adds b; returns false if full.
func (r *ByteRing) Push(b byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.space() == 0 {
		return false
	}
	r.buf[r.tail] = b
	r.tail = (r.tail + 1) & r.mask
	return true
}

// ForcePush adds b, or when the ring is full overwrites the most recently
// pushed byte with it. The decision is atomic with respect to Read. It
// reports whether an existing byte was overwritten.
func (r *ByteRing) ForcePush(b byte) (overwrote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.space() > 0 {
		r.buf[r.tail] = b
		r.tail = (r.tail + 1) & r.mask
		return false
	}
	r.buf[(r.tail-1)&r.mask] = b
	return true
}

// Read moves up to len(p) bytes into p and returns how many were moved.
func (r *ByteRing) Read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := min(len(p), r.count())
	if n == 0 {
		return 0
	}
	// at most two contiguous runs: head..end, then 0..
	first := min(n, len(r.buf)-r.head)
	copy(p, r.buf[r.head:r.head+first])
	copy(p[first:n], r.buf[:n-first])
	r.head = (r.head + n) & r.mask
	return n
}

// Len returns number of bytes queued.
func (r *ByteRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count()
}

// Space returns number of bytes that can be pushed before the ring is full.
func (r *ByteRing) Space() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.space()
}

// Cap returns the fixed buffer size. Usable capacity is Cap()-1.
func (r *ByteRing) Cap() int { return len(r.buf) }

// Cursors returns the raw head and tail positions.
func (r *ByteRing) Cursors() (head, tail int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.head, r.tail
}

// Reset discards all queued bytes.
func (r *ByteRing) Reset() {
	r.mu.Lock()
	r.head, r.tail = 0, 0
	r.mu.Unlock()
}
