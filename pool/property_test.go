package pool

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrampool/gpumempool/gpuruntime"
)

// TestFuzzRandomMallocFreeGuardInvariants performs random malloc/free
// against a single-device pool and validates spec.md §8's invariants after
// every step, grounded on the teacher's
// Test_Fuzz_RandomAllocFree_GuardInvariants.
func TestFuzzRandomMallocFreeGuardInvariants(t *testing.T) {
	ctx := context.Background()
	sim := gpuruntime.NewSim(1)
	p := NewDevicePool(sim, 0, Config{})

	rng := rand.New(rand.NewSource(42))
	live := map[uintptr]func() error{}

	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0, 2: // allocate (weighted to grow the live set over time)
			size := int64(1 + rng.Intn(4096))
			ptr, err := p.Malloc(ctx, size)
			require.NoError(t, err, "step %d: malloc(%d) failed", i, size)
			addr := ptr.Address()
			live[addr] = func() error { return ptr.Release(ctx) }

		case 1: // free a random live allocation
			for addr, release := range live {
				require.NoError(t, release(), "step %d: release failed", i)
				delete(live, addr)
				break
			}
		}

		validateInvariants(t, p)
	}

	for _, release := range live {
		require.NoError(t, release())
	}
	validateInvariants(t, p)
	require.Zero(t, p.UsedBytes())
}
