package gpuruntime

// PinHost locks host memory so it is safe to pass to an async host<->device
// copy: the runtime may read or write it at any point until the copy
// completes, so it must not be paged out in the meantime (spec.md §4.1,
// §9). The platform-specific lock call lives in pin_unix.go / pin_windows.go,
// split the same way hivekit's hive/dirty package splits its msync/fdatasync
// calls across flush_unix.go, flush_darwin.go and flush_windows.go.
//
// Callers of Pointer.CopyFromHostAsync/CopyToHostAsync are responsible for
// pinning their buffer first and unpinning it once the copy (and any stream
// synchronization waiting on it) has completed; this package does not pin
// implicitly, since pinning and unpinning every call would defeat the point
// of using the async path at all.
func PinHost(buf []byte) error {
	return pinHost(buf)
}

// UnpinHost reverses PinHost.
func UnpinHost(buf []byte) error {
	return unpinHost(buf)
}
