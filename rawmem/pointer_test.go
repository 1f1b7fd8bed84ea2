package rawmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrampool/gpumempool/gpuruntime"
	"github.com/vrampool/gpumempool/rawmem"
)

// TestPointerAsyncHostCopyRoundTripsPinnedMemory drives gpuruntime.PinHost
// and UnpinHost around an async host<->device copy, exercising the pinned-
// memory contract spec.md §4.1 describes for CopyFromHostAsync/CopyToHostAsync.
func TestPointerAsyncHostCopyRoundTripsPinnedMemory(t *testing.T) {
	ctx := context.Background()
	sim := gpuruntime.NewSim(1)
	stream := gpuruntime.NewStream(1)

	raw, err := rawmem.NewRaw(ctx, sim, 512)
	require.NoError(t, err)
	defer raw.Close(ctx)

	ptr, err := rawmem.New(raw, 0)
	require.NoError(t, err)

	src := []byte("pinned host buffer round-trip")
	require.NoError(t, gpuruntime.PinHost(src))
	defer gpuruntime.UnpinHost(src)

	require.NoError(t, ptr.CopyFromHostAsync(ctx, src, stream))

	dst := make([]byte, len(src))
	require.NoError(t, gpuruntime.PinHost(dst))
	defer gpuruntime.UnpinHost(dst)

	require.NoError(t, ptr.CopyToHostAsync(ctx, dst, stream))
	require.Equal(t, src, dst)
}
