// File: api/device.go
// Package api defines the character device contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"context"
	"fmt"
)

// OpenFlags selects the access mode and open-time behaviour of a session.
type OpenFlags int

// Access modes occupy the low two bits, as with O_ACCMODE.
const (
	ReadOnly  OpenFlags = 0x0
	WriteOnly OpenFlags = 0x1
	ReadWrite OpenFlags = 0x2
	AccMode   OpenFlags = 0x3

	// Truncate discards all pending data once the session is admitted.
	Truncate OpenFlags = 0x200
)

// Access returns the access mode bits.
func (f OpenFlags) Access() OpenFlags { return f & AccMode }

// String renders flags like "rdonly|trunc".
func (f OpenFlags) String() string {
	var s string
	switch f.Access() {
	case ReadOnly:
		s = "rdonly"
	case WriteOnly:
		s = "wronly"
	case ReadWrite:
		s = "rdwr"
	default:
		s = fmt.Sprintf("accmode(%d)", int(f.Access()))
	}
	if f&Truncate != 0 {
		s += "|trunc"
	}
	return s
}

// HalfByteSource is the hardware collaborator: one 4-bit value per call,
// called exactly twice per assembled byte.
type HalfByteSource interface {
	ReadHalfByte() uint8
}

// Session is one admitted opener of a Device.
type Session interface {
	// Read blocks until data is available and copies at most len(p) bytes,
	// stopping before a message sentinel. A zero count with nil error marks
	// the end of a message.
	Read(ctx context.Context, p []byte) (int, error)
	// Close releases the admission slot. Always succeeds.
	Close() error
}

// Device is the control-plane view of a read-only byte-stream device.
type Device interface {
	SetMaxOpeners(n int) error
	Status() Status
	GracefulShutdown
}

// Status is the diagnostic surface of a device.
type Status struct {
	Blocks        int
	BufferedBytes int
	Openers       int
	MaxOpeners    int

	Interrupts     uint64
	BytesAssembled uint64
	BytesDropped   uint64
	SentinelForced uint64
	DrainPasses    uint64
	AllocFailures  uint64
	RingPending    int
}

// String renders the status in the device's /proc layout.
func (s Status) String() string {
	return fmt.Sprintf("Num Pages = %d\nData Size = %d\nNum Procs = %d\nMax Procs = %d\n",
		s.Blocks, s.BufferedBytes, s.Openers, s.MaxOpeners)
}

// Map flattens the status for metrics and debug probes.
func (s Status) Map() map[string]any {
	return map[string]any{
		"blocks":          s.Blocks,
		"buffered_bytes":  s.BufferedBytes,
		"openers":         s.Openers,
		"max_openers":     s.MaxOpeners,
		"interrupts":      s.Interrupts,
		"bytes_assembled": s.BytesAssembled,
		"bytes_dropped":   s.BytesDropped,
		"sentinel_forced": s.SentinelForced,
		"drain_passes":    s.DrainPasses,
		"alloc_failures":  s.AllocFailures,
		"ring_pending":    s.RingPending,
	}
}
