// Package gpuruntime defines the minimal GPU-runtime surface the caching
// allocator in package pool consumes (synchronous raw malloc/free, memcpy,
// memset, device/stream/peer-access queries), plus a default in-process
// simulated backend so the rest of the module builds and runs without real
// hardware.
//
// A production build would swap in a cgo-backed Runtime (see sim.go's
// gpumempool_cuda build-tag counterpart for where that attaches) while
// leaving package pool untouched; the allocator only ever talks to the
// Runtime interface.
package gpuruntime
