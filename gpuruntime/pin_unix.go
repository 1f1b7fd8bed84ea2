//go:build linux || freebsd || darwin

package gpuruntime

import (
	"golang.org/x/sys/unix"
)

// pinHost locks buf's pages into physical memory so an async host<->device
// copy can safely reference them without risking a page fault mid-transfer
// (spec.md §4.1's pinned-memory requirement for CopyFromHostAsync/CopyToHostAsync).
func pinHost(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return unix.Mlock(buf)
}

// unpinHost reverses pinHost.
func unpinHost(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return unix.Munlock(buf)
}
