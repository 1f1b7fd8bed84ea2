package rawmem

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/vrampool/gpumempool/gpuruntime"
)

// Pointer is a value type carrying (owning Raw, absolute address within it)
// plus pointer arithmetic and device<->device/device<->host copy operations
// that forward to the runtime (spec.md §3, §4.1). It is the allocator's
// public return type.
type Pointer struct {
	owner *Raw
	off   int64
	h     *handle
}

// handle is the object a caching pool attaches a finalizer to. Pointer is a
// plain value copied freely by callers, so the object whose reachability
// the garbage collector can actually observe going away is this one,
// reached indirectly through Pointer.h — not Pointer itself.
type handle struct {
	release func(context.Context) error
	closed  bool
}

// New constructs a Pointer into owner at off. Per spec.md §4.1 this requires
// owner.Base() > 0 or off == 0 — a nonzero offset into a zero-size, zero-base
// allocation can never denote real memory.
func New(owner *Raw, off int64) (Pointer, error) {
	if owner.Base() == 0 && off != 0 {
		return Pointer{}, fmt.Errorf("rawmem: offset %d into zero-size allocation", off)
	}
	return Pointer{owner: owner, off: off}, nil
}

// NewManaged is New plus a release callback a caching pool supplies so that
// Release (or, failing that, the garbage collector plus a finalize.Sweep)
// returns the underlying chunk to the pool. Pool package code is the only
// intended caller.
func NewManaged(owner *Raw, off int64, release func(context.Context) error) (Pointer, error) {
	p, err := New(owner, off)
	if err != nil {
		return Pointer{}, err
	}
	h := &handle{release: release}
	p.h = h
	DefaultFinalizers.Track(h, func() {
		_ = h.release(context.Background())
	})
	return p, nil
}

// Release returns a managed pointer's chunk to its owning pool. It is a
// no-op on a Pointer that was not constructed by NewManaged, and idempotent
// on one that was — matching spec.md §9's "call Release when done" contract,
// with the finalizer in internal/finalize as the safety net for callers who
// never do.
func (p Pointer) Release(ctx context.Context) error {
	if p.h == nil || p.h.closed {
		return nil
	}
	p.h.closed = true
	DefaultFinalizers.Untrack(p.h)
	return p.h.release(ctx)
}

// Add returns a pointer offset by delta bytes into the same owner.
func (p Pointer) Add(delta int64) Pointer {
	return Pointer{owner: p.owner, off: p.off + delta}
}

// AddInPlace offsets p by delta bytes in place.
func (p *Pointer) AddInPlace(delta int64) {
	p.off += delta
}

// Device returns the id of the device this pointer addresses.
func (p Pointer) Device() int {
	if p.owner == nil {
		return 0
	}
	return p.owner.DeviceID()
}

// Address returns the absolute device address.
func (p Pointer) Address() uintptr {
	if p.owner == nil {
		return 0
	}
	return p.owner.Base() + uintptr(p.off)
}

// IsZero reports whether p addresses the zero-size sentinel allocation
// (spec.md §8's zero-size scenario: address 0, size 0).
func (p Pointer) IsZero() bool {
	return p.owner == nil || p.Address() == 0
}

func (p Pointer) runtime() gpuruntime.Runtime {
	if p.owner == nil {
		return nil
	}
	return p.owner.Runtime()
}

// CopyFromDevice copies n bytes from src (on any device) into p, enabling
// peer access from src's device to p's device first if the two differ
// (spec.md §4.1). n == 0 is a no-op that issues no runtime call.
func (p Pointer) CopyFromDevice(ctx context.Context, src Pointer, n int64) error {
	if n == 0 {
		return nil
	}
	rt := p.runtime()
	if src.Device() != p.Device() {
		if err := gpuruntime.DefaultPeerAccessCache.Ensure(rt, src.Device(), p.Device()); err != nil {
			return err
		}
	}
	return rt.Memcpy(ctx, p.Address(), src.Address(), n, gpuruntime.DeviceToDevice)
}

// CopyFromDeviceAsync is the async counterpart of CopyFromDevice.
func (p Pointer) CopyFromDeviceAsync(ctx context.Context, src Pointer, n int64, stream gpuruntime.Stream) error {
	if n == 0 {
		return nil
	}
	rt := p.runtime()
	if src.Device() != p.Device() {
		if err := gpuruntime.DefaultPeerAccessCache.Ensure(rt, src.Device(), p.Device()); err != nil {
			return err
		}
	}
	return rt.MemcpyAsync(ctx, p.Address(), src.Address(), n, gpuruntime.DeviceToDevice, stream)
}

// CopyFromHost copies n bytes from a host buffer into p.
func (p Pointer) CopyFromHost(ctx context.Context, src []byte) error {
	n := int64(len(src))
	if n == 0 {
		return nil
	}
	return p.runtime().Memcpy(ctx, p.Address(), hostAddr(src), n, gpuruntime.HostToDevice)
}

// CopyToHost copies n bytes from p into a host buffer.
func (p Pointer) CopyToHost(ctx context.Context, dst []byte) error {
	n := int64(len(dst))
	if n == 0 {
		return nil
	}
	return p.runtime().Memcpy(ctx, hostAddr(dst), p.Address(), n, gpuruntime.DeviceToHost)
}

// CopyFromHostAsync is the async counterpart of CopyFromHost. The caller is
// responsible for src being pinned host memory; this is not verified
// (spec.md §4.1 — async host copies require pinned memory for correctness
// but the allocator does not check it).
func (p Pointer) CopyFromHostAsync(ctx context.Context, src []byte, stream gpuruntime.Stream) error {
	n := int64(len(src))
	if n == 0 {
		return nil
	}
	return p.runtime().MemcpyAsync(ctx, p.Address(), hostAddr(src), n, gpuruntime.HostToDevice, stream)
}

// CopyToHostAsync is the async counterpart of CopyToHost.
func (p Pointer) CopyToHostAsync(ctx context.Context, dst []byte, stream gpuruntime.Stream) error {
	n := int64(len(dst))
	if n == 0 {
		return nil
	}
	return p.runtime().MemcpyAsync(ctx, hostAddr(dst), p.Address(), n, gpuruntime.DeviceToHost, stream)
}

// CopyFrom is a polymorphic convenience that dispatches by the dynamic type
// of mem: a Pointer triggers a device-to-device copy, a []byte triggers a
// host-to-device copy (spec.md §4.1).
func (p Pointer) CopyFrom(ctx context.Context, mem any, n int64) error {
	switch v := mem.(type) {
	case Pointer:
		return p.CopyFromDevice(ctx, v, n)
	case []byte:
		return p.CopyFromHost(ctx, v[:n])
	default:
		return fmt.Errorf("rawmem: CopyFrom: unsupported source type %T", mem)
	}
}

// CopyFromAsync is the async counterpart of CopyFrom.
func (p Pointer) CopyFromAsync(ctx context.Context, mem any, n int64, stream gpuruntime.Stream) error {
	switch v := mem.(type) {
	case Pointer:
		return p.CopyFromDeviceAsync(ctx, v, n, stream)
	case []byte:
		return p.CopyFromHostAsync(ctx, v[:n], stream)
	default:
		return fmt.Errorf("rawmem: CopyFromAsync: unsupported source type %T", mem)
	}
}

// Memset fills n bytes starting at p with value.
func (p Pointer) Memset(ctx context.Context, value byte, n int64) error {
	if n == 0 {
		return nil
	}
	return p.runtime().Memset(ctx, p.Address(), value, n)
}

// MemsetAsync is the async counterpart of Memset.
func (p Pointer) MemsetAsync(ctx context.Context, value byte, n int64, stream gpuruntime.Stream) error {
	if n == 0 {
		return nil
	}
	return p.runtime().MemsetAsync(ctx, p.Address(), value, n, stream)
}

// hostAddr returns the real address backing a host buffer. Runtime
// implementations that need to tell host and device addresses apart do so
// via the CopyKind passed alongside it, not via the address value itself.
func hostAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}
