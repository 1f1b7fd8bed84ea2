package gpuruntime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrampool/gpumempool/gpuruntime"
)

// TestPeerAccessCacheIdempotent checks that repeated Ensure calls for one
// (owner, peer) pair call EnablePeerAccess at most once.
func TestPeerAccessCacheIdempotent(t *testing.T) {
	sim := gpuruntime.NewSim(2)
	cache := gpuruntime.NewPeerAccessCache()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Ensure(sim, 0, 1))
	}

	require.Equal(t, 1, sim.PeerAccessCalls(0, 1))
}

// TestPeerAccessCacheRestoresActiveDevice checks that Ensure leaves the
// runtime's active device unchanged even though it switches to owner
// internally to call EnablePeerAccess.
func TestPeerAccessCacheRestoresActiveDevice(t *testing.T) {
	sim := gpuruntime.NewSim(3)
	require.NoError(t, sim.SetDevice(2))
	cache := gpuruntime.NewPeerAccessCache()

	require.NoError(t, cache.Ensure(sim, 0, 1))
	require.Equal(t, 2, sim.GetDevice())
}

// TestPeerAccessCacheSelfIsNoop checks that Ensure with owner == peer never
// enables peer access from a device to itself.
func TestPeerAccessCacheSelfIsNoop(t *testing.T) {
	sim := gpuruntime.NewSim(1)
	cache := gpuruntime.NewPeerAccessCache()

	require.NoError(t, cache.Ensure(sim, 0, 0))
	require.Equal(t, 0, sim.PeerAccessCalls(0, 0))
}
