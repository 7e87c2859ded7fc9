// File: internal/concurrency/tasklet.go
// Package concurrency implements deferred work with trigger coalescing.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Tasklet owns one worker goroutine and a single-slot pending flag.
// Schedule never blocks: triggers raised while a run is pending collapse
// into that run, and the function never executes concurrently with itself.

package concurrency

import (
	"sync"
	"sync/atomic"
)

// TaskFunc is a unit of deferred work.
type TaskFunc func()

// Tasklet runs fn on its own goroutine each time it is scheduled.
type Tasklet struct {
	fn      TaskFunc
	pending chan struct{}
	stopCh  chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   atomic.Bool

	scheduled atomic.Uint64
	coalesced atomic.Uint64
	runs      atomic.Uint64
}

// NewTasklet creates a stopped tasklet around fn.
func NewTasklet(fn TaskFunc) *Tasklet {
	return &Tasklet{
		fn:      fn,
		pending: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. Subsequent calls are no-ops.
func (t *Tasklet) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

// Schedule requests a run. Returns false when the request merged into an
// already pending one or the tasklet is stopped.
func (t *Tasklet) Schedule() bool {
	if t.stopped.Load() {
		return false
	}
	t.scheduled.Add(1)
	select {
	case t.pending <- struct{}{}:
		return true
	default:
		t.coalesced.Add(1)
		return false
	}
}

// Stop terminates the worker and waits for an in-flight run to finish.
// A pending trigger is dropped.
func (t *Tasklet) Stop() {
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		close(t.stopCh)
		// Start may never have been called.
		t.startOnce.Do(func() { close(t.done) })
		<-t.done
	})
}

func (t *Tasklet) run() {
	defer close(t.done)
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.pending:
			t.runs.Add(1)
			t.fn()
		}
	}
}

// Stats returns basic tasklet counters.
func (t *Tasklet) Stats() map[string]uint64 {
	return map[string]uint64{
		"scheduled": t.scheduled.Load(),
		"coalesced": t.coalesced.Load(),
		"runs":      t.runs.Load(),
	}
}

// Runs returns how many times fn has been started.
func (t *Tasklet) Runs() uint64 { return t.runs.Load() }
