// File: device/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package device implements a read-only character device fed by half-byte
// hardware signals.
//
// Data moves through three execution contexts:
//
//   - the top half (Interrupt), called once per nibble, pairs nibbles into
//     bytes and pushes them onto a fixed-size ring;
//   - the bottom half, a coalescing tasklet, grows a page-backed queue and
//     moves ring bytes into it, then wakes readers;
//   - sessions (Read) block until data is queued and copy it out, stopping
//     at the 0 sentinel that ends each message.
//
// The ring has its own short-held lock shared by the first two contexts;
// the page queue and its cursors are guarded by one mutex held for a whole
// drain or read pass. Open gates sessions against MaxOpeners.
package device
