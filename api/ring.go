// Package api
// Author: momentics@gmail.com
//
// Bounded byte ring shared by the interrupt path and the drain task.

package api

// Ring is a fixed-capacity byte ring contract.
type Ring interface {
	// Push adds one byte, returns false if full.
	Push(b byte) bool
	// Read moves up to len(p) bytes out, returns the count moved.
	Read(p []byte) int
	// Len returns current number of queued bytes.
	Len() int
	// Space returns the number of bytes that can still be pushed.
	Space() int
	// Cap returns buffer capacity.
	Cap() int
}
