// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"encoding/json"
	"math"
	"sync"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
	hooks  ReloadHooks
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// Int returns key as an int. Values decoded from JSON arrive as float64 or
// json.Number; only integral ones are accepted.
func (cs *ConfigStore) Int(key string) (int, bool) {
	v, ok := cs.Get(key)
	if !ok {
		return 0, false
	}
	return IntValue(v)
}

// IntValue converts a config value to int, accepting integral numbers only.
func IntValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// SetConfig merges new values and runs the reload listeners once the
// store is unlocked, so listeners may read it back.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.mu.Unlock()
	cs.hooks.TriggerSync()
}

// Apply is SetConfig as an Applier: the store itself accepts any value.
func (cs *ConfigStore) Apply() Applier { return storeApplier{cs} }

type storeApplier struct{ cs *ConfigStore }

func (a storeApplier) SetConfig(cfg map[string]any) error {
	a.cs.SetConfig(cfg)
	return nil
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.hooks.Register(fn)
}
