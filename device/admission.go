// File: device/admission.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

import (
	"context"

	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/internal/concurrency"
)

// Open admits a new reading session. Only read-only access is accepted.
//
// When the device already has MaxOpeners sessions, Open waits until every
// one of them has closed, not just one: admission is all-or-nothing. The
// wait ends early with api.ErrInterrupted when ctx is done.
func (d *Device) Open(ctx context.Context, flags api.OpenFlags) (*Session, error) {
	if err := d.checkAccess(flags); err != nil {
		return nil, err
	}

	d.admMu.Lock()
	if d.nprocs >= d.maxProcs {
		d.log.Debug("open waiting for all sessions to close", "openers", d.nprocs, "max_openers", d.maxProcs)
		for d.nprocs != 0 && !d.closed.Load() {
			if err := concurrency.WaitContext(ctx, &d.admMu, d.admitReady); err != nil {
				d.admMu.Unlock()
				return nil, interrupted(err)
			}
		}
	}
	if d.closed.Load() {
		d.admMu.Unlock()
		return nil, api.ErrDeviceClosed
	}
	d.nprocs++
	d.admMu.Unlock()

	return d.admitted(flags)
}

// TryOpen is Open without waiting: a saturated device yields api.ErrBusy.
func (d *Device) TryOpen(flags api.OpenFlags) (*Session, error) {
	if err := d.checkAccess(flags); err != nil {
		return nil, err
	}

	d.admMu.Lock()
	if d.closed.Load() {
		d.admMu.Unlock()
		return nil, api.ErrDeviceClosed
	}
	if d.nprocs >= d.maxProcs {
		n, limit := d.nprocs, d.maxProcs
		d.admMu.Unlock()
		return nil, api.NewError(api.ErrCodeBusy, "device busy").
			WithContext("openers", n).
			WithContext("max_openers", limit)
	}
	d.nprocs++
	d.admMu.Unlock()

	return d.admitted(flags)
}

func (d *Device) checkAccess(flags api.OpenFlags) error {
	if flags.Access() != api.ReadOnly {
		return api.NewError(api.ErrCodeAccessDenied, "device is read-only").
			WithContext("flags", flags.String())
	}
	if d.closed.Load() {
		return api.ErrDeviceClosed
	}
	return nil
}

func (d *Device) admitted(flags api.OpenFlags) (*Session, error) {
	if flags&api.Truncate != 0 {
		d.mu.Lock()
		err := d.discardLocked()
		d.mu.Unlock()
		if err != nil {
			d.release()
			return nil, err
		}
	}
	d.log.Debug("session opened", "flags", flags.String())
	return &Session{dev: d, flags: flags}, nil
}

// release undoes an admission: the pending sentinel marker is cleared,
// the opener count drops, and every blocked Open is woken to recheck.
func (d *Device) release() {
	d.mu.Lock()
	d.hasMarker = false
	d.mu.Unlock()

	d.admMu.Lock()
	d.nprocs--
	d.admitReady.Broadcast()
	d.admMu.Unlock()
}
