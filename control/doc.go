// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection
// layer for the acquisition device.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates with reload listeners
//   - JSON config files, re-applied on change through fsnotify
//   - Metrics sink receiving device counters after each drain pass
//   - Debug probe registration and state export
package control
