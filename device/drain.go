// File: device/drain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

// drain is the bottom half, run by the tasklet. It grows the page queue to
// fit everything waiting in the ring, moves those bytes across, and always
// finishes by waking readers, even when nothing was copied.
//
// A failed allocation aborts the pass with the queue untouched; the bytes
// stay in the ring for the next trigger.
func (d *Device) drain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drainPasses.Add(1)

	if count := d.ring.Len(); count > 0 {
		added, err := d.pages.Grow(count)
		if err != nil {
			d.allocFailures.Add(1)
			d.dlog.Error("drain aborted",
				"pending", count,
				"blocks", d.pages.Blocks(),
				"data_size", d.pages.DataSize(),
				"err", err)
		} else {
			copied := d.pages.Fill(count, d.ring.Read)
			d.dlog.Debug("drain pass",
				"pending", count,
				"copied", copied,
				"blocks_added", added,
				"blocks", d.pages.Blocks(),
				"data_size", d.pages.DataSize())
		}
	}

	d.noData = false
	d.dataReady.Broadcast()
	d.publishLocked()
}
