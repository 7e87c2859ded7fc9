// File: gpio/port.go
// Package gpio simulates the half-byte parallel port feeding the device.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package gpio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/internal/concurrency"
	"github.com/momentics/nibblepipe/internal/logging"
)

// Ensure compile-time interface compliance.
var _ api.HalfByteSource = (*Port)(nil)

// IRQHandler is invoked once per available nibble.
type IRQHandler func()

// Port is a simulated 4-bit input port. Bytes written to it are latched as
// two nibbles, high nibble first, and released one per interrupt.
type Port struct {
	mu       sync.Mutex
	nibbles  []uint8
	head     int
	kick     chan struct{}
	interval time.Duration
	cpu      int
	log      *slog.Logger

	raised uint64
	misses uint64
	taken  uint64 // nibbles acknowledged by a read
}

// Option customizes a Port.
type Option func(*Port)

// WithInterval spaces interrupts by d, emulating the line rate.
func WithInterval(d time.Duration) Option {
	return func(p *Port) { p.interval = d }
}

// WithCPU pins the interrupt pump started by Run to one CPU, the way an
// IRQ is routed to a fixed core. cpu < 0 leaves it unpinned.
func WithCPU(cpu int) Option {
	return func(p *Port) { p.cpu = cpu }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Port) { p.log = l }
}

// NewPort creates an idle port.
func NewPort(opts ...Option) *Port {
	p := &Port{kick: make(chan struct{}, 1), cpu: -1}
	for _, o := range opts {
		o(p)
	}
	p.log = logging.For(p.log, logging.ComponentGPIO)
	return p
}

// Write latches p for transmission. It never fails.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.head > 0 && p.head >= len(p.nibbles)/2 {
		n := copy(p.nibbles, p.nibbles[p.head:])
		p.nibbles, p.head = p.nibbles[:n], 0
	}
	for _, c := range b {
		p.nibbles = append(p.nibbles, c>>4, c&0x0f)
	}
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
	return len(b), nil
}

// WriteMessage latches msg followed by the 0 sentinel.
func (p *Port) WriteMessage(msg []byte) {
	p.Write(msg)
	p.Write([]byte{0})
}

// ReadHalfByte returns the next latched nibble. Reading an empty port
// returns 0 and counts a miss.
func (p *Port) ReadHalfByte() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.head == len(p.nibbles) {
		p.misses++
		return 0
	}
	v := p.nibbles[p.head]
	p.head++
	p.taken++
	return v
}

// Pending returns the number of nibbles not yet read.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nibbles) - p.head
}

// Burst raises irq synchronously for every pending nibble and returns how
// many interrupts were raised. It stops early if a handler leaves its
// nibble unread.
func (p *Port) Burst(irq IRQHandler) int {
	n := 0
	for p.Pending() > 0 {
		before := p.acked()
		irq()
		n++
		if p.acked() == before {
			p.log.Warn("interrupt not acknowledged", "pending", p.Pending())
			break
		}
	}
	p.mu.Lock()
	p.raised += uint64(n)
	p.mu.Unlock()
	return n
}

// Run raises irq once per nibble as data arrives until ctx is cancelled.
// Interrupts are raised from a single goroutine, never concurrently.
func (p *Port) Run(ctx context.Context, irq IRQHandler) error {
	if p.cpu >= 0 {
		unpin, err := concurrency.PinCurrentThread(p.cpu)
		if err != nil {
			return err
		}
		defer unpin()
	}
	var tick *time.Ticker
	if p.interval > 0 {
		tick = time.NewTicker(p.interval)
		defer tick.Stop()
	}
	p.log.Debug("interrupt pump started", "interval", p.interval, "cpu", p.cpu)
	for {
		if p.Pending() == 0 {
			select {
			case <-ctx.Done():
				p.log.Debug("interrupt pump stopped", "raised", p.Stats()["raised"])
				return ctx.Err()
			case <-p.kick:
			}
			continue
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
		before := p.acked()
		irq()
		p.mu.Lock()
		p.raised++
		stalled := p.taken == before
		p.mu.Unlock()
		if stalled {
			// handler left the nibble latched; wait for new data rather than spin
			p.log.Warn("interrupt not acknowledged", "pending", p.Pending())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.kick:
			}
		}
	}
}

func (p *Port) acked() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taken
}

// Stats returns interrupt counters.
func (p *Port) Stats() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]uint64{
		"raised":  p.raised,
		"misses":  p.misses,
		"taken":   p.taken,
		"pending": uint64(len(p.nibbles) - p.head),
	}
}
