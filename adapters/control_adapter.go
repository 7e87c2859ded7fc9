// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control on top of the control package
// primitives, bound to one acquisition device.

package adapters

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/control"
	"github.com/momentics/nibblepipe/internal/logging"
)

// KeyMaxOpeners is the runtime config key applied through SetMaxOpeners.
const KeyMaxOpeners = "max_openers"

// Ensure compile-time interface compliance.
var (
	_ api.Control     = (*ControlAdapter)(nil)
	_ control.Applier = (*ControlAdapter)(nil)
)

type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	log     *slog.Logger

	mu  sync.Mutex
	dev api.Device
}

// NewControlAdapter builds the control plane. The device is attached later
// with Bind, since the device itself takes Metrics() at construction.
func NewControlAdapter(logger *slog.Logger) *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		log:     logging.For(logger, logging.ComponentControl),
	}
	control.RegisterPlatformProbes(adapter.debug)
	adapter.config.OnReload(adapter.apply)
	return adapter
}

// Bind attaches dev: its status becomes the "status" probe and the
// current max_openers value, if any, is applied right away.
func (c *ControlAdapter) Bind(dev api.Device) {
	c.mu.Lock()
	c.dev = dev
	c.mu.Unlock()
	c.debug.RegisterProbe("status", func() any {
		return dev.Status().Map()
	})
	c.apply()
}

// Metrics is the sink to hand to the device.
func (c *ControlAdapter) Metrics() api.MetricsSink { return c.metrics }

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig validates known keys before merging cfg; a rejected update
// leaves the store unchanged.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	if v, ok := cfg[KeyMaxOpeners]; ok {
		if err := validateMaxOpeners(v); err != nil {
			return err
		}
	}
	c.config.SetConfig(cfg)
	return nil
}

func validateMaxOpeners(v any) error {
	if n, ok := control.IntValue(v); ok && n > 0 {
		return nil
	}
	return api.NewError(api.ErrCodeInvalidArgument, "max_openers must be a positive integer").
		WithContext(KeyMaxOpeners, fmt.Sprint(v))
}

// apply pushes max_openers into the bound device. SetConfig has already
// rejected bad values; the conversion is repeated for the typed read.
func (c *ControlAdapter) apply() {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()
	if dev == nil {
		return
	}
	v, ok := c.config.Get(KeyMaxOpeners)
	if !ok {
		return
	}
	n, ok := c.config.Int(KeyMaxOpeners)
	if !ok {
		c.log.Error("ignoring max_openers", "value", fmt.Sprint(v))
		return
	}
	if n == dev.Status().MaxOpeners {
		return
	}
	if err := dev.SetMaxOpeners(n); err != nil {
		c.log.Error("applying max_openers", "value", n, "err", err)
	}
}

func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
