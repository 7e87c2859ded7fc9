// File: device/read.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

import (
	"bytes"
	"context"
	"fmt"

	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/internal/concurrency"
)

// read is the consumer side. It blocks while the queue is empty, then
// copies at most len(p) bytes, stopping just before a sentinel. A found
// sentinel is left in the queue with its position recorded; the next call
// consumes it and returns 0, which marks the end of the message.
func (d *Device) read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if d.closed.Load() {
			return 0, api.ErrDeviceClosed
		}
		if d.hasMarker && d.pages.Position() == d.marker {
			d.hasMarker = false
			if err := d.consumeLocked(1); err != nil {
				return 0, err
			}
			return 0, nil
		}
		if !d.pages.Empty() {
			break
		}
		d.noData = true
		for d.noData && !d.closed.Load() {
			if err := concurrency.WaitContext(ctx, &d.mu, d.dataReady); err != nil {
				return 0, interrupted(err)
			}
		}
	}

	actual := min(len(p), d.pages.Unread())
	n := 0
	for n < actual {
		chunk := d.pages.HeadChunk(actual - n)
		found := false
		if i := bytes.IndexByte(chunk, sentinel); i >= 0 {
			if n == 0 && i == 0 {
				// empty message: the boundary is consumed right away
				return 0, d.consumeLocked(1)
			}
			chunk, found = chunk[:i], true
		}
		if err := d.copyAll(p[n:], chunk); err != nil {
			return n, err
		}
		if err := d.consumeLocked(len(chunk)); err != nil {
			return n, err
		}
		n += len(chunk)
		if found {
			d.marker, d.hasMarker = d.pages.Position(), true
			break
		}
	}
	if err := d.pages.Check(); err != nil {
		d.log.Error("page queue invariant broken after read", "err", err)
	}
	return n, nil
}

// copyAll moves src into dst through copyOut, which may transfer fewer
// bytes than asked on each attempt.
func (d *Device) copyAll(dst, src []byte) error {
	for off := 0; off < len(src); {
		c := d.copyOut(dst[off:], src[off:])
		if c <= 0 {
			return api.NewError(api.ErrCodeInternal, "copy to caller made no progress").
				WithContext("copied", off).
				WithContext("want", len(src))
		}
		off += c
	}
	return nil
}

// consumeLocked advances the head cursor, recycling a block once it has
// been read to the end.
func (d *Device) consumeLocked(n int) error {
	freed, err := d.pages.Advance(n)
	if err != nil {
		return fmt.Errorf("consume %d bytes: %w", n, err)
	}
	if freed {
		d.log.Debug("block recycled", "blocks", d.pages.Blocks(), "data_size", d.pages.DataSize())
	}
	return nil
}

func interrupted(cause error) error {
	return api.NewError(api.ErrCodeInterrupted, "wait interrupted").WithCause(cause)
}
