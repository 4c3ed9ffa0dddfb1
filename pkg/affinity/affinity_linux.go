//go:build linux

// Package affinity pins benchmark goroutines to distinct CPUs so throughput
// measurements are not skewed by the scheduler migrating them mid-run.
package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its current OS thread and restricts
// that thread to the given CPU. Call it once per worker goroutine before
// it starts doing timed work.
func Pin(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// Available reports whether CPU pinning is supported on this platform.
func Available() bool { return true }
