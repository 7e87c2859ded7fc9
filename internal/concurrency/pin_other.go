//go:build !linux

// File: internal/concurrency/pin_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"fmt"
	"runtime"
)

// PinCurrentThread only locks the goroutine to its OS thread; CPU binding
// is not available on this platform.
func PinCurrentThread(cpu int) (func(), error) {
	if cpu < 0 {
		return nil, fmt.Errorf("pin to cpu %d: negative id", cpu)
	}
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}

// AllowedCPUs lists every CPU; affinity masks are not queried here.
func AllowedCPUs() []int {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}
