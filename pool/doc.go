// Package pool implements a caching allocator over a coarse device-memory
// runtime. It amortizes synchronous raw allocations by recycling freed
// regions ("chunks") of previously-allocated device memory across calls,
// segregating free chunks into per-stream, per-size-bin free lists.
//
// DevicePool handles a single device. MultiPool dispatches across several
// DevicePools by the runtime's currently active device. The package-level
// Alloc/SetCurrentAllocator pair gives callers a single swappable entry
// point, following the style of a process-wide default collaborator with
// thin forwarding functions.
package pool
