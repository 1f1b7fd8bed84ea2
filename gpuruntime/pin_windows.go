//go:build windows

package gpuruntime

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// pinHost locks buf's pages into physical memory so an async host<->device
// copy can safely reference them without risking a page fault mid-transfer
// (spec.md §4.1's pinned-memory requirement for CopyFromHostAsync/CopyToHostAsync).
func pinHost(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	addr := unsafe.Pointer(&buf[0])
	return windows.VirtualLock(addr, uintptr(len(buf)))
}

// unpinHost reverses pinHost.
func unpinHost(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	addr := unsafe.Pointer(&buf[0])
	return windows.VirtualUnlock(addr, uintptr(len(buf)))
}
