// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown stops background work and releases held resources.
type GracefulShutdown interface {
	// Shutdown is idempotent; it returns an error only if teardown failed.
	Shutdown() error
}
