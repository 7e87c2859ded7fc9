// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for the acquisition pipeline: the interrupt-side
// byte ring, a coalescing deferred-work tasklet, and a context-aware
// broadcast notifier for blocking waits, plus thread pinning for the
// interrupt pump.
package concurrency
