// File: internal/concurrency/notify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Notifier is a broadcast wake-up point for condition waits that must also
// honour context cancellation.

package concurrency

import (
	"context"
	"sync"
)

// Notifier wakes every goroutine waiting on the current generation.
// All methods must be called with the mutex guarding the waited-on
// condition held; that is what rules out missed wake-ups.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a notifier with an open generation.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Wait returns the channel closed by the next Broadcast.
func (n *Notifier) Wait() <-chan struct{} { return n.ch }

// Broadcast wakes all current waiters and opens a new generation.
func (n *Notifier) Broadcast() {
	close(n.ch)
	n.ch = make(chan struct{})
}

// WaitContext releases mu, sleeps until n is broadcast or ctx is done, and
// reacquires mu before returning. Like sync.Cond.Wait, callers recheck
// their condition in a loop. The returned error is ctx.Err().
func WaitContext(ctx context.Context, mu sync.Locker, n *Notifier) error {
	ch := n.Wait()
	mu.Unlock()
	defer mu.Lock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
