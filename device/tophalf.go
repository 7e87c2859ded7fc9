// File: device/tophalf.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

// sentinel terminates a message in the byte stream.
const sentinel byte = 0

// Interrupt is the top half: it is raised once per nibble by the hardware
// source and must not be called concurrently with itself. The first call of
// a pair latches the high nibble, the second completes the byte and queues
// it on the ring, then asks for a drain. It never blocks on the page queue
// and never allocates.
func (d *Device) Interrupt() {
	// the nibble is acknowledged even after shutdown, or the line stays raised
	nibble := d.src.ReadHalfByte() & 0x0f
	if d.closed.Load() {
		return
	}
	d.interrupts.Add(1)
	if !d.highLatched {
		d.latch = nibble << 4
		d.highLatched = true
		return
	}
	d.highLatched = false
	b := d.latch | nibble
	d.assembled.Add(1)

	if b == sentinel {
		// A full ring must not swallow the terminator: it replaces the
		// newest queued byte instead.
		if d.ring.ForcePush(b) {
			d.truncated.Add(1)
		}
		d.drainer.Schedule()
		return
	}
	if d.ring.Push(b) {
		d.drainer.Schedule()
		return
	}
	// power-of-two sampling keeps an overrun from flooding the log
	if n := d.dropped.Add(1); n&(n-1) == 0 {
		d.log.Warn("ring full, byte dropped", "dropped", n, "ring_size", d.ring.Cap())
	}
}
