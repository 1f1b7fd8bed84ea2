package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrampool/gpumempool/gpuruntime"
)

// TestScenarioRoundTrip is spec.md §8's "Round-trip" scenario.
func TestScenarioRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewDevicePool(gpuruntime.NewSim(1), 0, Config{})

	ptr, err := p.Malloc(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(512), p.UsedBytes())
	addr := ptr.Address()

	require.NoError(t, ptr.Release(ctx))
	require.Zero(t, p.UsedBytes())
	require.Equal(t, int64(512), p.FreeBytes())
	require.Equal(t, 1, p.NFreeBlocks())

	ptr2, err := p.Malloc(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, addr, ptr2.Address(), "expected LIFO reuse of the just-freed chunk")
}

// TestScenarioSplit is spec.md §8's "Split" scenario.
func TestScenarioSplit(t *testing.T) {
	ctx := context.Background()
	p := NewDevicePool(gpuruntime.NewSim(1), 0, Config{})

	big, err := p.Malloc(ctx, 2048)
	require.NoError(t, err)
	require.NoError(t, big.Release(ctx))

	small, err := p.Malloc(ctx, 512)
	require.NoError(t, err)
	defer small.Release(ctx)

	require.Equal(t, int64(1536), p.FreeBytes())
	require.Len(t, p.arenas[0].bins[2], 1, "remainder should sit in bin 2")
}

// TestScenarioCoalesce is spec.md §8's "Coalesce" scenario, continuing from
// Split: the parent's three remaining 512-byte chunks are allocated and
// freed out of order, and must re-coalesce into a single 2048-byte chunk.
func TestScenarioCoalesce(t *testing.T) {
	ctx := context.Background()
	p := NewDevicePool(gpuruntime.NewSim(1), 0, Config{})

	big, err := p.Malloc(ctx, 2048)
	require.NoError(t, err)
	require.NoError(t, big.Release(ctx))

	c0, err := p.Malloc(ctx, 512)
	require.NoError(t, err)
	c1, err := p.Malloc(ctx, 512)
	require.NoError(t, err)
	c2, err := p.Malloc(ctx, 512)
	require.NoError(t, err)
	c3, err := p.Malloc(ctx, 512)
	require.NoError(t, err)

	require.NoError(t, c1.Release(ctx))
	require.NoError(t, c3.Release(ctx))
	require.NoError(t, c0.Release(ctx))
	require.NoError(t, c2.Release(ctx))

	require.Equal(t, 1, p.NFreeBlocks())
	require.Equal(t, int64(2048), p.FreeBytes())
	require.Len(t, p.arenas[0].bins[3], 1, "fully-coalesced chunk should sit in bin 3")
}

// TestScenarioStreamIsolation is spec.md §8's "Stream isolation" scenario.
func TestScenarioStreamIsolation(t *testing.T) {
	ctx := context.Background()
	p := NewDevicePool(gpuruntime.NewSim(1), 0, Config{})

	ctxA := gpuruntime.WithStream(ctx, gpuruntime.NewStream(1))
	ctxB := gpuruntime.WithStream(ctx, gpuruntime.NewStream(2))

	a, err := p.Malloc(ctxA, 512)
	require.NoError(t, err)
	addrA := a.Address()
	require.NoError(t, a.Release(ctxA))

	b, err := p.Malloc(ctxB, 512)
	require.NoError(t, err)
	defer b.Release(ctxB)

	require.NotEqual(t, addrA, b.Address(), "stream B must not reuse stream A's freed chunk")
}

// TestScenarioOOMRetry is spec.md §8's "OOM retry" scenario.
func TestScenarioOOMRetry(t *testing.T) {
	ctx := context.Background()
	sim := gpuruntime.NewSim(1)
	p := NewDevicePool(sim, 0, Config{})

	whole, err := p.Malloc(ctx, 2048)
	require.NoError(t, err)
	require.NoError(t, whole.Release(ctx))

	sim.FailNextMallocs(1)

	ptr, err := p.Malloc(ctx, 4096)
	require.NoError(t, err, "malloc should succeed after FreeAllBlocks reclaims the 2048 parent")
	defer ptr.Release(ctx)

	require.Zero(t, p.FreeBytes(), "the reclaimed parent should no longer be tracked")
}

// TestScenarioZeroSize is spec.md §8's "Zero size" scenario.
func TestScenarioZeroSize(t *testing.T) {
	ctx := context.Background()
	p := NewDevicePool(gpuruntime.NewSim(1), 0, Config{})

	ptr, err := p.Malloc(ctx, 0)
	require.NoError(t, err)
	require.True(t, ptr.IsZero())

	require.NoError(t, ptr.Release(ctx))
	require.Zero(t, p.UsedBytes())
	require.Zero(t, p.FreeBytes())
	require.Zero(t, p.NFreeBlocks())
}
