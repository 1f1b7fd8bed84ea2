package gpuruntime

import (
	"context"
	"errors"
)

// CopyKind selects the direction of a Memcpy/MemcpyAsync call.
type CopyKind int

const (
	// Default lets the runtime infer direction from the pointers involved.
	Default CopyKind = iota
	HostToDevice
	DeviceToHost
	DeviceToDevice
)

// Stream is an opaque handle to a device execution timeline. The zero Stream
// is the runtime's default (legacy) stream.
type Stream struct {
	id uintptr
}

// NewStream wraps a runtime-assigned stream handle value.
func NewStream(id uintptr) Stream { return Stream{id: id} }

// Pointer returns the opaque handle value passed to async runtime calls.
func (s Stream) Pointer() uintptr { return s.id }

// ErrOutOfMemory is the distinguishable out-of-memory condition spec.md §6
// requires; callers use errors.Is against it.
var ErrOutOfMemory = errors.New("gpuruntime: out of memory")

// Runtime is the small API surface the allocator consumes from a GPU
// runtime collaborator (spec.md §6). Every method that can block accepts a
// context so a real backend can honor cancellation around the synchronous
// portion of the underlying call.
type Runtime interface {
	// Malloc performs a synchronous raw device allocation of n bytes.
	Malloc(ctx context.Context, n int64) (uintptr, error)
	// Free performs a synchronous raw device free.
	Free(ctx context.Context, addr uintptr) error

	Memcpy(ctx context.Context, dst, src uintptr, n int64, kind CopyKind) error
	MemcpyAsync(ctx context.Context, dst, src uintptr, n int64, kind CopyKind, stream Stream) error
	Memset(ctx context.Context, addr uintptr, value byte, n int64) error
	MemsetAsync(ctx context.Context, addr uintptr, value byte, n int64, stream Stream) error

	// GetDevice returns the id of the currently active device.
	GetDevice() int
	// SetDevice makes id the currently active device.
	SetDevice(id int) error

	// CanAccessPeer reports whether device a can access device b's memory
	// directly, without caching — caching is PeerAccessCache's job.
	CanAccessPeer(a, b int) (bool, error)
	// EnablePeerAccess enables the currently active device's access to peer.
	EnablePeerAccess(peer int) error

	// CurrentStream returns the stream considered "current" for the calling
	// goroutine absent an explicit WithStream override.
	CurrentStream() Stream
}

type streamKey struct{}

// WithStream attaches a stream to ctx so CurrentStream(ctx) returns it for
// async calls issued further down the call chain, standing in for the
// ambient "current stream" cupy.cuda.Stream provides as a context manager
// in original_source/cupy/cuda/stream.py — Go has no thread-local storage,
// so the override travels explicitly through context.Context instead.
func WithStream(ctx context.Context, s Stream) context.Context {
	return context.WithValue(ctx, streamKey{}, s)
}

// CurrentStream returns the stream attached to ctx via WithStream, or rt's
// own notion of current stream if none was attached.
func CurrentStream(ctx context.Context, rt Runtime) Stream {
	if s, ok := ctx.Value(streamKey{}).(Stream); ok {
		return s
	}
	return rt.CurrentStream()
}
