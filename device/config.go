// File: device/config.go
// Package device defines configuration for the acquisition device.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package device

import (
	"fmt"
	"log/slog"

	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/pool"
)

// Config holds all device configuration parameters.
type Config struct {
	BlockSize  int             // page queue block size, OS page size by default
	RingSize   int             // interrupt ring capacity, power of two
	MaxOpeners int             // concurrent sessions before Open blocks
	MaxBlocks  int             // cap on allocated blocks (0 = unlimited)
	Allocator  pool.Allocator  // block memory source
	Logger     *slog.Logger    // nil = logging.Default()
	Metrics    api.MetricsSink // optional, updated after each drain pass
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BlockSize:  pool.PageSize(),
		RingSize:   1024,
		MaxOpeners: 1,
		Allocator:  pool.NewAllocator(),
	}
}

func (c *Config) validate() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("block size %d: %w", c.BlockSize, api.ErrInvalidArgument)
	case c.RingSize < 2 || c.RingSize&(c.RingSize-1) != 0:
		return fmt.Errorf("ring size %d is not a power of two: %w", c.RingSize, api.ErrInvalidArgument)
	case c.MaxOpeners <= 0:
		return fmt.Errorf("max openers %d: %w", c.MaxOpeners, api.ErrInvalidArgument)
	case c.MaxBlocks < 0:
		return fmt.Errorf("max blocks %d: %w", c.MaxBlocks, api.ErrInvalidArgument)
	}
	return nil
}

// Option customizes device initialization.
type Option func(*Config)

// WithBlockSize overrides the page queue block size.
func WithBlockSize(n int) Option {
	return func(c *Config) { c.BlockSize = n }
}

// WithRingSize overrides the interrupt ring capacity.
func WithRingSize(n int) Option {
	return func(c *Config) { c.RingSize = n }
}

// WithMaxOpeners sets the initial admission limit.
func WithMaxOpeners(n int) Option {
	return func(c *Config) { c.MaxOpeners = n }
}

// WithMaxBlocks caps the memory held by the page queue.
func WithMaxBlocks(n int) Option {
	return func(c *Config) { c.MaxBlocks = n }
}

// WithAllocator replaces the block allocator.
func WithAllocator(a pool.Allocator) Option {
	return func(c *Config) { c.Allocator = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m api.MetricsSink) Option {
	return func(c *Config) { c.Metrics = m }
}
