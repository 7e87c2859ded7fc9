// File: device/device.go
// Package device implements the half-byte acquisition device.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/internal/concurrency"
	"github.com/momentics/nibblepipe/internal/logging"
	"github.com/momentics/nibblepipe/pool"
)

// Ensure compile-time interface compliance.
var _ api.Device = (*Device)(nil)

// Device is one simulated acquisition device. It owns the interrupt ring,
// the drain tasklet, the page queue and the admission state.
//
// Lock order: mu before admMu.
type Device struct {
	cfg  *Config
	log  *slog.Logger
	dlog *slog.Logger
	src  api.HalfByteSource

	// Interrupt context only.
	highLatched bool
	latch       byte

	ring    *concurrency.ByteRing
	drainer *concurrency.Tasklet

	mu        sync.Mutex // page queue, cursors, framing marker
	arena     *pool.Arena
	pages     *pool.PageQueue
	noData    bool
	dataReady *concurrency.Notifier
	marker    uint64 // absolute position of a pending sentinel
	hasMarker bool
	copyOut   func(dst, src []byte) int

	admMu      sync.Mutex
	nprocs     int
	maxProcs   int
	admitReady *concurrency.Notifier

	closed atomic.Bool

	interrupts    atomic.Uint64
	assembled     atomic.Uint64
	dropped       atomic.Uint64
	truncated     atomic.Uint64
	drainPasses   atomic.Uint64
	allocFailures atomic.Uint64
}

// New creates a device reading nibbles from src. cfg may be nil.
func New(src api.HalfByteSource, cfg *Config, opts ...Option) (*Device, error) {
	if src == nil {
		return nil, fmt.Errorf("nil half-byte source: %w", api.ErrInvalidArgument)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	for _, o := range opts {
		o(&c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Allocator == nil {
		c.Allocator = pool.NewAllocator()
	}

	arena := pool.NewArena(c.BlockSize, pool.Limit(c.Allocator, c.MaxBlocks))
	d := &Device{
		cfg:        &c,
		log:        logging.For(c.Logger, logging.ComponentDevice),
		dlog:       logging.For(c.Logger, logging.ComponentDrain),
		src:        src,
		ring:       concurrency.NewByteRing(c.RingSize),
		arena:      arena,
		pages:      pool.NewPageQueue(arena),
		dataReady:  concurrency.NewNotifier(),
		copyOut:    copyBytes,
		maxProcs:   c.MaxOpeners,
		admitReady: concurrency.NewNotifier(),
	}
	d.drainer = concurrency.NewTasklet(d.drain)
	return d, nil
}

// copyBytes is the default copy-to-caller primitive.
func copyBytes(dst, src []byte) int { return copy(dst, src) }

// Start launches the drain tasklet.
func (d *Device) Start() error {
	if d.closed.Load() {
		return api.ErrDeviceClosed
	}
	d.drainer.Start()
	d.log.Info("device started",
		"block_size", d.cfg.BlockSize,
		"ring_size", d.cfg.RingSize,
		"max_openers", d.cfg.MaxOpeners)
	return nil
}

// Shutdown stops the drain tasklet, frees every block and fails all
// blocked opens and reads with api.ErrDeviceClosed. It is idempotent.
func (d *Device) Shutdown() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.drainer.Stop()

	d.mu.Lock()
	err := d.pages.Reset()
	d.ring.Reset()
	d.hasMarker = false
	d.dataReady.Broadcast()
	d.mu.Unlock()

	d.admMu.Lock()
	d.admitReady.Broadcast()
	d.admMu.Unlock()

	if err != nil {
		d.log.Error("freeing blocks on shutdown", "err", err)
		return err
	}
	d.log.Info("device shut down")
	return nil
}

// SetMaxOpeners changes the admission limit. n must be positive.
func (d *Device) SetMaxOpeners(n int) error {
	if n <= 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "max openers must be positive").
			WithContext("max_openers", n)
	}
	d.admMu.Lock()
	d.maxProcs = n
	d.admMu.Unlock()
	d.log.Info("max openers changed", "max_openers", n)
	return nil
}

// Status reports the diagnostic counters.
func (d *Device) Status() api.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusLocked()
}

func (d *Device) statusLocked() api.Status {
	d.admMu.Lock()
	nprocs, maxProcs := d.nprocs, d.maxProcs
	d.admMu.Unlock()
	return api.Status{
		Blocks:         d.pages.Blocks(),
		BufferedBytes:  d.pages.DataSize(),
		Openers:        nprocs,
		MaxOpeners:     maxProcs,
		Interrupts:     d.interrupts.Load(),
		BytesAssembled: d.assembled.Load(),
		BytesDropped:   d.dropped.Load(),
		SentinelForced: d.truncated.Load(),
		DrainPasses:    d.drainPasses.Load(),
		AllocFailures:  d.allocFailures.Load(),
		RingPending:    d.ring.Len(),
	}
}

func (d *Device) publishLocked() {
	if d.cfg.Metrics == nil {
		return
	}
	for k, v := range d.statusLocked().Map() {
		d.cfg.Metrics.Set("device."+k, v)
	}
}

// discardLocked drops all buffered data, as a truncating open does.
func (d *Device) discardLocked() error {
	d.hasMarker = false
	if err := d.pages.Reset(); err != nil {
		return err
	}
	d.log.Info("pending data discarded")
	return nil
}
