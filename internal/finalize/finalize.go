// Package finalize provides the allocator's safety net for handles whose
// owner forgot to call Release. Device memory has no destructor, so
// package pool registers a runtime.SetFinalizer on every live handle it
// hands out; Sweep forces the finalizer queue to drain so pool's two-stage
// OOM retry can reclaim memory a caller dropped without releasing.
package finalize

import (
	"runtime"
	"sync/atomic"
)

// Registry counts finalizer-driven reclamations so callers (and tests) can
// observe whether a Sweep actually freed anything.
//
// NOT required for correctness of the finalizer mechanism itself — handles
// are freed by runtime.SetFinalizer regardless of whether anyone is
// watching the count.
type Registry struct {
	live  int64
	swept int64
}

// NewRegistry creates an empty finalizer registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Track registers finalizer on obj, which runs release(obj) if obj becomes
// unreachable without an explicit Release. release must be idempotent: an
// explicit Release racing the finalizer is expected, not an error.
func (r *Registry) Track(obj any, release func()) {
	atomic.AddInt64(&r.live, 1)
	runtime.SetFinalizer(obj, func(any) {
		atomic.AddInt64(&r.live, -1)
		atomic.AddInt64(&r.swept, 1)
		release()
	})
}

// Untrack clears obj's finalizer, called by an explicit Release so the
// finalizer queue never sees objects that were released properly.
func (r *Registry) Untrack(obj any) {
	runtime.SetFinalizer(obj, nil)
	atomic.AddInt64(&r.live, -1)
}

// Live returns the number of tracked handles that have not yet been
// released or finalized.
func (r *Registry) Live() int64 { return atomic.LoadInt64(&r.live) }

// Swept returns the cumulative number of handles reclaimed by the
// finalizer rather than an explicit Release.
func (r *Registry) Swept() int64 { return atomic.LoadInt64(&r.swept) }

// Sweep forces a garbage collection cycle and yields once, giving pending
// finalizers a chance to run; it does not wait for them to finish. Package
// pool calls this between the
// two stages of its out-of-memory retry: a caller that dropped a handle
// without releasing it gets one chance to have that memory reclaimed before
// the allocation is finally reported as failed.
func Sweep() {
	runtime.GC()
	runtime.Gosched()
}
