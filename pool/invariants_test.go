package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrampool/gpumempool/rawmem"
)

func allChunks(p *DevicePool) []*chunk {
	var out []*chunk
	for _, c := range p.inUse {
		out = append(out, c)
	}
	for _, a := range p.arenas {
		for _, bin := range a.bins {
			out = append(out, bin...)
		}
	}
	return out
}

// validateInvariants checks spec.md §8's quantified invariants 1-7 against
// a pool's current state (invariant 8, peer-access idempotency, is covered
// in gpuruntime/peeraccess_test.go). Grounded on the teacher's
// validateHiveInvariants, called after every step of a random op sequence.
func validateInvariants(t *testing.T, p *DevicePool) {
	t.Helper()

	// 1. Non-overlap of in-use chunks.
	type span struct{ lo, hi uintptr }
	var spans []span
	for _, c := range p.inUse {
		lo := c.address()
		spans = append(spans, span{lo, lo + uintptr(c.size)})
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			overlap := spans[i].lo < spans[j].hi && spans[j].lo < spans[i].hi
			require.False(t, overlap, "in-use chunks overlap: %+v %+v", spans[i], spans[j])
		}
	}

	// 2 & 3. Contiguity per parent, and single home (every chunk reachable
	// from exactly the neighbor chain its parent's chunks form).
	byParent := map[*rawmem.Raw][]*chunk{}
	for _, c := range allChunks(p) {
		byParent[c.parent] = append(byParent[c.parent], c)
	}
	for parent, cs := range byParent {
		var head *chunk
		for _, c := range cs {
			if c.prev == nil {
				require.Nil(t, head, "parent has more than one chunk with nil prev")
				head = c
			}
		}
		require.NotNil(t, head, "parent has no chunk with nil prev")

		var offset int64
		count := 0
		for cur := head; cur != nil; cur = cur.next {
			require.Equal(t, offset, cur.offset, "chunk offset mismatch in neighbor chain")
			offset += cur.size
			count++
		}
		require.Equal(t, parent.Size(), offset, "parent's chunks do not cover its full size")
		require.Equal(t, len(cs), count, "parent has chunks unreachable from its neighbor chain")
	}

	// 4 & 7. Bin correctness and alignment.
	for _, a := range p.arenas {
		for i, bin := range a.bins {
			for _, c := range bin {
				require.False(t, c.inUse, "chunk in a free bin marked in-use")
				require.Equal(t, i, binIndex(c.size), "chunk in bin %d has wrong size %d", i, c.size)
				require.Zero(t, c.size%Unit, "chunk size %d not a multiple of Unit", c.size)
				if addr := c.address(); addr != 0 {
					require.Zero(t, addr%uintptr(Unit), "chunk address %#x not aligned to Unit", addr)
				}
			}
		}
	}

	// 5. No mergeable free neighbors.
	for _, c := range allChunks(p) {
		if c.inUse {
			continue
		}
		if n := c.next; n != nil && !n.inUse && n.streamTag == c.streamTag {
			t.Fatalf("adjacent free chunks with same stream tag were not coalesced: %#x, %#x",
				c.address(), n.address())
		}
	}

	// 6. Byte accounting.
	require.Equal(t, p.TotalBytes(), p.UsedBytes()+p.FreeBytes(), "used+free != total")
}
