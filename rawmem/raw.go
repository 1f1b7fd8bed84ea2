package rawmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/vrampool/gpumempool/gpuruntime"
	"github.com/vrampool/gpumempool/internal/finalize"
)

// DefaultFinalizers is the process-wide registry backing the finalizer
// safety net that NewRaw and NewManaged install. Its Live and Swept counts
// report how many tracked objects are outstanding and how many were
// reclaimed by the garbage collector rather than an explicit Close or
// Release.
var DefaultFinalizers = finalize.NewRegistry()

// Raw owns exactly one physical device allocation, acquired via the runtime
// on construction and released on Close (spec.md §3's "Raw Allocation").
//
// If Size is zero, Base is zero and no runtime call was ever made for this
// Raw — the zero-size invariant is enforced by NewRaw, not by callers.
type Raw struct {
	rt       gpuruntime.Runtime
	deviceID int
	base     uintptr
	size     int64

	once   sync.Once
	closed bool
}

// NewRaw acquires a new raw allocation of size bytes on the runtime's
// currently active device. size == 0 is legal and performs no runtime call.
func NewRaw(ctx context.Context, rt gpuruntime.Runtime, size int64) (*Raw, error) {
	if size < 0 {
		return nil, fmt.Errorf("rawmem: negative size %d", size)
	}
	if size == 0 {
		return &Raw{rt: rt, deviceID: rt.GetDevice(), base: 0, size: 0}, nil
	}

	device := rt.GetDevice()
	base, err := rt.Malloc(ctx, size)
	if err != nil {
		return nil, err
	}
	r := &Raw{rt: rt, deviceID: device, base: base, size: size}
	DefaultFinalizers.Track(r, func() {
		_ = rt.Free(context.Background(), base)
	})
	return r, nil
}

// DeviceID returns the device this allocation lives on.
func (r *Raw) DeviceID() int { return r.deviceID }

// Base returns the absolute device address of byte zero of this allocation.
// Zero if Size is zero.
func (r *Raw) Base() uintptr { return r.base }

// Size returns the allocation's byte size.
func (r *Raw) Size() int64 { return r.size }

// Runtime returns the collaborator this allocation was acquired from, for
// callers (package pool) that need to issue further runtime calls against
// the same backend.
func (r *Raw) Runtime() gpuruntime.Runtime { return r.rt }

// Close releases the underlying device allocation. Calling Close more than
// once, or on a zero-size Raw, is a no-op — matching spec.md §3's "destroyed
// exactly once by a matching runtime free" lifecycle while tolerating
// redundant callers (e.g. a finalizer racing an explicit Close).
func (r *Raw) Close(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		r.closed = true
		if r.size == 0 {
			return
		}
		DefaultFinalizers.Untrack(r)
		err = r.rt.Free(ctx, r.base)
	})
	return err
}
