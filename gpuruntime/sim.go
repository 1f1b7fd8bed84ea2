//go:build !gpumempool_cuda

package gpuruntime

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// Sim is a pure-Go, in-process Runtime used by default (and exclusively in
// tests) so the allocator can be exercised without real hardware. It models
// each device's memory as a byte slice addressed by a process-wide counter,
// following the build-tagged cuda/mock split in
// other_examples/Leeaandrob-kv-cache-p2p__pool_{cuda,mock}.go: a real backend
// lives behind the gpumempool_cuda build tag (see cuda.go) and this file is
// what ships by default.
type Sim struct {
	mu sync.Mutex

	devices map[int]*simDevice
	active  int
	nextID  uintptr

	// failNext, when > 0, makes the next N Malloc calls fail with
	// ErrOutOfMemory and decrements by one each time. Used by tests to drive
	// the two-stage OOM retry in pool.DevicePool.Malloc.
	failNext int

	peerLog []peerCall // recorded EnablePeerAccess calls, for idempotency tests
}

type peerCall struct {
	owner, peer int
}

type simDevice struct {
	mem       map[uintptr][]byte
	curStream uintptr
}

// simAllocUnit mirrors pool.Unit: every real device allocator hands out
// base addresses aligned to its own allocation granularity, so the sim must
// too, or spec.md §8 invariant 7 (every malloc(n>0) address is a multiple
// of Unit) fails for sim-backed addresses before package pool ever gets a
// chance to round anything. gpuruntime cannot import pool to share the
// constant (pool imports gpuruntime), so the value is duplicated here.
const simAllocUnit = 512

// NewSim creates a simulated runtime with n devices (ids 0..n-1), device 0
// active.
func NewSim(n int) *Sim {
	s := &Sim{devices: make(map[int]*simDevice), nextID: simAllocUnit}
	for i := 0; i < n; i++ {
		s.devices[i] = &simDevice{mem: make(map[uintptr][]byte)}
	}
	return s
}

// FailNextMallocs arranges for the next n calls to Malloc to fail with
// ErrOutOfMemory, simulating exhaustion for spec.md §8's OOM-retry scenario.
func (s *Sim) FailNextMallocs(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

func (s *Sim) dev(id int) *simDevice {
	d, ok := s.devices[id]
	if !ok {
		d = &simDevice{mem: make(map[uintptr][]byte)}
		s.devices[id] = d
	}
	return d
}

func (s *Sim) Malloc(_ context.Context, n int64) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == 0 {
		return 0, nil
	}
	if s.failNext > 0 {
		s.failNext--
		return 0, ErrOutOfMemory
	}

	addr := s.nextID
	aligned := (uintptr(n) + simAllocUnit - 1) &^ (simAllocUnit - 1)
	s.nextID += aligned
	s.dev(s.active).mem[addr] = make([]byte, n)
	return addr, nil
}

func (s *Sim) Free(_ context.Context, addr uintptr) error {
	if addr == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dev(s.active).mem, addr)
	return nil
}

func (s *Sim) bytesAt(device int, addr uintptr, n int64) ([]byte, error) {
	d := s.dev(device)
	for base, buf := range d.mem {
		if addr >= base && addr+uintptr(n) <= base+uintptr(len(buf)) {
			off := addr - base
			return buf[off : off+uintptr(n)], nil
		}
	}
	return nil, fmt.Errorf("gpuruntime: address %#x not found on device %d", addr, device)
}

func (s *Sim) Memcpy(_ context.Context, dst, src uintptr, n int64, kind CopyKind) error {
	if n == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case HostToDevice:
		dstBuf, err := s.bytesAt(s.active, dst, n)
		if err != nil {
			return err
		}
		copy(dstBuf, unsafe.Slice((*byte)(unsafe.Pointer(src)), n))
		return nil
	case DeviceToHost:
		srcBuf, err := s.bytesAt(s.active, src, n)
		if err != nil {
			return err
		}
		copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), n), srcBuf)
		return nil
	default:
		dstBuf, err := s.bytesAt(s.active, dst, n)
		if err != nil {
			return err
		}
		srcBuf, err := s.bytesAt(s.active, src, n)
		if err != nil {
			return err
		}
		copy(dstBuf, srcBuf)
		return nil
	}
}

func (s *Sim) MemcpyAsync(ctx context.Context, dst, src uintptr, n int64, kind CopyKind, _ Stream) error {
	return s.Memcpy(ctx, dst, src, n, kind)
}

func (s *Sim) Memset(_ context.Context, addr uintptr, value byte, n int64) error {
	if n == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.bytesAt(s.active, addr, n)
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = value
	}
	return nil
}

func (s *Sim) MemsetAsync(ctx context.Context, addr uintptr, value byte, n int64, _ Stream) error {
	return s.Memset(ctx, addr, value, n)
}

func (s *Sim) GetDevice() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Sim) SetDevice(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return fmt.Errorf("gpuruntime: unknown device %d", id)
	}
	s.active = id
	return nil
}

// CanAccessPeer always reports true for distinct known devices in the
// simulated backend; it still costs a call so PeerAccessCache has something
// to amortize.
func (s *Sim) CanAccessPeer(a, b int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, aok := s.devices[a]
	_, bok := s.devices[b]
	return aok && bok && a != b, nil
}

func (s *Sim) EnablePeerAccess(peer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peerLog = append(s.peerLog, peerCall{owner: s.active, peer: peer})
	return nil
}

// PeerAccessCalls returns how many times EnablePeerAccess(peer) was called
// while owner was active, for idempotent-peer-access tests.
func (s *Sim) PeerAccessCalls(owner, peer int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.peerLog {
		if c.owner == owner && c.peer == peer {
			n++
		}
	}
	return n
}

// CurrentStream returns the active device's current stream, the legacy
// default stream (handle 0) until SwitchStream is called.
func (s *Sim) CurrentStream() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewStream(s.dev(s.active).curStream)
}

// SwitchStream changes the active device's notion of "current stream",
// modeling the host-side bookkeeping a real runtime's stream context manager
// would perform (original_source/cupy/cuda/stream.py's Stream.use()). Tests
// use this to exercise spec.md §8's stream-isolation scenario.
func (s *Sim) SwitchStream(stream Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dev(s.active).curStream = stream.Pointer()
}
