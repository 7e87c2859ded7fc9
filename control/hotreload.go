// control/hotreload.go
// Manages hot-reload hooks for config changes.
// TriggerSync gives deterministic notification; Trigger fans out.

package control

import "sync"

// ReloadHooks is a list of listeners run after a configuration change.
// The zero value is ready to use.
type ReloadHooks struct {
	mu    sync.Mutex
	hooks []func()
}

// Register adds a new component reload listener.
func (h *ReloadHooks) Register(fn func()) {
	h.mu.Lock()
	h.hooks = append(h.hooks, fn)
	h.mu.Unlock()
}

func (h *ReloadHooks) snapshot() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]func(){}, h.hooks...)
}

// Trigger dispatches all hooks asynchronously.
func (h *ReloadHooks) Trigger() {
	for _, fn := range h.snapshot() {
		go fn()
	}
}

// TriggerSync invokes all hooks in registration order.
func (h *ReloadHooks) TriggerSync() {
	for _, fn := range h.snapshot() {
		fn()
	}
}
