package pool

import (
	"context"
	"sync/atomic"

	"github.com/vrampool/gpumempool/gpuruntime"
	"github.com/vrampool/gpumempool/rawmem"
)

// AllocFunc is the shape of a process-wide allocator entry point (spec.md
// §4.9).
type AllocFunc func(ctx context.Context, n int64) (rawmem.Pointer, error)

var currentAllocator atomic.Pointer[AllocFunc]

// SetCurrentAllocator installs f as the process-wide default allocator
// Alloc forwards to. Replacement is not synchronized against concurrent
// Alloc calls beyond the atomic pointer swap itself; intended to happen
// once at startup (spec.md §4.9, §5).
func SetCurrentAllocator(f AllocFunc) {
	currentAllocator.Store(&f)
}

// Alloc invokes the current allocator. There is no implicit default: Go
// has no ambient runtime singleton to allocate from the way the original
// module-level cupy.cuda collaborator does, so a caller must install one
// (NonPooling or a DevicePool/MultiPool method) before the first Alloc.
func Alloc(ctx context.Context, n int64) (rawmem.Pointer, error) {
	f := currentAllocator.Load()
	if f == nil {
		return rawmem.Pointer{}, ErrNoCurrentAllocator
	}
	return (*f)(ctx, n)
}

// NonPooling returns a non-pooling raw allocator for SetCurrentAllocator:
// every call is a fresh runtime allocation, with no caching behavior at all.
// It is not installed automatically; Alloc has no allocator until one is set.
func NonPooling(rt gpuruntime.Runtime) AllocFunc {
	return func(ctx context.Context, n int64) (rawmem.Pointer, error) {
		raw, err := rawmem.NewRaw(ctx, rt, n)
		if err != nil {
			return rawmem.Pointer{}, err
		}
		return rawmem.New(raw, 0)
	}
}
