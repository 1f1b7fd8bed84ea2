//go:build gpumempool_cuda

package gpuruntime

import (
	"context"
	"errors"
)

// Cuda is the integration point for a real GPU backend. It is excluded from
// default builds (build tag gpumempool_cuda) the same way
// other_examples/Leeaandrob-kv-cache-p2p__pool_cuda.go is gated behind its
// own "cuda" tag versus the mock it ships by default: package pool never
// imports this file directly, it only ever depends on the Runtime interface,
// so wiring a real backend in is a matter of constructing a Cuda instead of
// a Sim at program start.
//
// This repository does not vendor or fabricate a cgo binding for an actual
// CUDA runtime; every method below is an explicit placeholder so a real
// integration has a documented, type-checked seam to fill in.
type Cuda struct{}

var errCudaUnimplemented = errors.New("gpuruntime: cuda backend not linked into this build")

func (Cuda) Malloc(context.Context, int64) (uintptr, error)   { return 0, errCudaUnimplemented }
func (Cuda) Free(context.Context, uintptr) error              { return errCudaUnimplemented }
func (Cuda) Memcpy(context.Context, uintptr, uintptr, int64, CopyKind) error {
	return errCudaUnimplemented
}
func (Cuda) MemcpyAsync(context.Context, uintptr, uintptr, int64, CopyKind, Stream) error {
	return errCudaUnimplemented
}
func (Cuda) Memset(context.Context, uintptr, byte, int64) error { return errCudaUnimplemented }
func (Cuda) MemsetAsync(context.Context, uintptr, byte, int64, Stream) error {
	return errCudaUnimplemented
}
func (Cuda) GetDevice() int                          { return 0 }
func (Cuda) SetDevice(int) error                     { return errCudaUnimplemented }
func (Cuda) CanAccessPeer(int, int) (bool, error)    { return false, errCudaUnimplemented }
func (Cuda) EnablePeerAccess(int) error              { return errCudaUnimplemented }
func (Cuda) CurrentStream() Stream                   { return Stream{} }
