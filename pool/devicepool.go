package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/vrampool/gpumempool/gpuruntime"
	"github.com/vrampool/gpumempool/internal/finalize"
	"github.com/vrampool/gpumempool/rawmem"
)

// DevicePool is the caching allocator for a single device (spec.md §3-4,
// "Single-Device Pool"). It is NOT safe for concurrent use: callers that
// wish to drive it from multiple host threads must serialize externally,
// or run one pool per thread (spec.md §5).
type DevicePool struct {
	rt     gpuruntime.Runtime
	device int
	config Config

	arenas  map[uintptr]*arena
	inUse   map[uintptr]*chunk
	parents []*rawmem.Raw
}

// NewDevicePool creates a pool that allocates raw device memory through rt
// on device id device.
func NewDevicePool(rt gpuruntime.Runtime, device int, config Config) *DevicePool {
	return &DevicePool{
		rt:     rt,
		device: device,
		config: config,
		arenas: make(map[uintptr]*arena),
		inUse:  make(map[uintptr]*chunk),
	}
}

func (p *DevicePool) arena(streamTag uintptr) *arena {
	a, ok := p.arenas[streamTag]
	if !ok {
		tag := streamTag
		a = newArena(p.config.initialBins(), func(newLen int) {
			if p.config.OnArenaGrow != nil {
				p.config.OnArenaGrow(tag, newLen)
			}
		})
		p.arenas[streamTag] = a
	}
	return a
}

// Malloc implements spec.md §4.5: best-fit reuse from the current stream's
// arena, falling back to a raw allocation (with a two-stage out-of-memory
// retry) when no chunk fits.
func (p *DevicePool) Malloc(ctx context.Context, request int64) (rawmem.Pointer, error) {
	if request < 0 {
		return rawmem.Pointer{}, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, request)
	}
	if request == 0 {
		raw, err := rawmem.NewRaw(ctx, p.rt, 0)
		if err != nil {
			return rawmem.Pointer{}, err
		}
		return rawmem.New(raw, 0)
	}

	n := roundUp(request)
	i := binIndex(n)
	streamTag := gpuruntime.CurrentStream(ctx, p.rt).Pointer()
	a := p.arena(streamTag)

	var head, tail *chunk
	if c := a.popBestFit(i); c != nil {
		head, tail = split(c, n)
		if tail != nil {
			p.insertFree(streamTag, tail)
		}
		debugLogf("malloc(%d): reused chunk aligned=%d bin=%d stream=%#x", request, n, i, streamTag)
	}

	if head == nil {
		raw, err := p.rawAllocWithRetry(ctx, n)
		if err != nil {
			return rawmem.Pointer{}, err
		}
		p.parents = append(p.parents, raw)
		head = &chunk{parent: raw, offset: 0, size: n, streamTag: streamTag}
		debugLogf("malloc(%d): cold-allocated aligned=%d stream=%#x", request, n, streamTag)
	}

	head.inUse = true
	head.streamTag = streamTag
	addr := head.address()
	p.inUse[addr] = head

	return rawmem.NewManaged(head.parent, head.offset, func(context.Context) error {
		return p.Free(addr, n)
	})
}

// rawAllocWithRetry is spec.md §4.5 steps 5a-5c: attempt a raw allocation;
// on out-of-memory, release whole free parents and retry; on a second
// out-of-memory, force a finalizer sweep (to reclaim chunks whose owning
// Pointer was dropped without Release) and retry once more. Any non-OOM
// failure propagates unchanged.
func (p *DevicePool) rawAllocWithRetry(ctx context.Context, n int64) (*rawmem.Raw, error) {
	raw, err := rawmem.NewRaw(ctx, p.rt, n)
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, gpuruntime.ErrOutOfMemory) {
		return nil, err
	}

	freed := p.FreeAllBlocks()
	debugLogf("malloc(%d): OOM, freed %d bytes via FreeAllBlocks, retrying", n, freed)
	raw, err = rawmem.NewRaw(ctx, p.rt, n)
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, gpuruntime.ErrOutOfMemory) {
		return nil, err
	}

	finalize.Sweep()
	debugLogf("malloc(%d): OOM again, ran finalizer sweep, retrying", n)
	return rawmem.NewRaw(ctx, p.rt, n)
}

func (p *DevicePool) insertFree(streamTag uintptr, c *chunk) {
	p.arena(streamTag).push(binIndex(c.size), c)
}

// Free returns address to the pool (spec.md §4.6). size is the chunk's
// recorded size, passed by the Pointer's release closure as a sanity aid,
// not used as a lookup key.
func (p *DevicePool) Free(address uintptr, size int64) error {
	if address == 0 && size == 0 {
		return nil
	}

	c, ok := p.inUse[address]
	if !ok {
		return fmt.Errorf("%w: address %#x", ErrInvalidFree, address)
	}
	delete(p.inUse, address)
	c.inUse = false
	streamTag := c.streamTag
	a := p.arena(streamTag)

	if n := c.next; n != nil && !n.inUse && n.streamTag == streamTag {
		a.remove(binIndex(n.size), n)
		c = merge(c, n)
		debugLogf("free(%#x): forward-coalesced with %#x", address, n.address())
	}
	if pr := c.prev; pr != nil && !pr.inUse && pr.streamTag == streamTag {
		a.remove(binIndex(pr.size), pr)
		c = merge(pr, c)
		debugLogf("free(%#x): backward-coalesced with %#x", address, pr.address())
	}

	p.insertFree(streamTag, c)
	return nil
}

// FreeAllBlocks releases every whole, unsplit parent allocation back to the
// runtime (spec.md §4.7). A chunk with prev == nil && next == nil spans its
// entire parent — either because the parent was never split, or because
// every sibling has since been freed and re-coalesced — and is therefore
// safe to return; a chunk with any live sibling is kept.
func (p *DevicePool) FreeAllBlocks() int64 {
	reclaim := make(map[*rawmem.Raw]int64)
	for _, a := range p.arenas {
		for i, bin := range a.bins {
			kept := bin[:0]
			for _, c := range bin {
				if c.prev == nil && c.next == nil {
					reclaim[c.parent] = c.size
					continue
				}
				kept = append(kept, c)
			}
			a.bins[i] = kept
		}
	}
	if len(reclaim) == 0 {
		return 0
	}

	var freed int64
	survivors := p.parents[:0]
	for _, raw := range p.parents {
		n, ok := reclaim[raw]
		if !ok {
			survivors = append(survivors, raw)
			continue
		}
		_ = raw.Close(context.Background())
		freed += n
	}
	p.parents = survivors
	return freed
}

// FreeAllFree is a deprecated alias for FreeAllBlocks; it logs once per
// process and delegates (spec.md §4.7).
func (p *DevicePool) FreeAllFree() int64 {
	freeAllFreeWarnOnce.Do(func() {
		debugLogf("FreeAllFree is deprecated, use FreeAllBlocks")
	})
	return p.FreeAllBlocks()
}

// NFreeBlocks, UsedBytes, FreeBytes and TotalBytes walk the maps and sum;
// they are O(#chunks) and not cached (spec.md §4.7).

func (p *DevicePool) NFreeBlocks() int {
	n := 0
	for _, a := range p.arenas {
		for _, bin := range a.bins {
			n += len(bin)
		}
	}
	return n
}

func (p *DevicePool) UsedBytes() int64 {
	var n int64
	for _, c := range p.inUse {
		n += c.size
	}
	return n
}

func (p *DevicePool) FreeBytes() int64 {
	var n int64
	for _, a := range p.arenas {
		for _, bin := range a.bins {
			for _, c := range bin {
				n += c.size
			}
		}
	}
	return n
}

func (p *DevicePool) TotalBytes() int64 {
	var n int64
	for _, raw := range p.parents {
		n += raw.Size()
	}
	return n
}

// Stats bundles the four accounting queries into one call (supplemented
// from original_source/'s combined pool stats query).
type Stats struct {
	NFreeBlocks int
	UsedBytes   int64
	FreeBytes   int64
	TotalBytes  int64
}

func (p *DevicePool) Stats() Stats {
	return Stats{
		NFreeBlocks: p.NFreeBlocks(),
		UsedBytes:   p.UsedBytes(),
		FreeBytes:   p.FreeBytes(),
		TotalBytes:  p.TotalBytes(),
	}
}
