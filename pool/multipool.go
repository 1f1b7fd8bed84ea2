package pool

import (
	"context"
	"sync"

	"github.com/vrampool/gpumempool/gpuruntime"
	"github.com/vrampool/gpumempool/rawmem"
)

// MultiPool dispatches to a lazily constructed per-device DevicePool for
// whichever device rt currently reports as active (spec.md §4.8). Nothing
// is shared across devices; two devices' pools are fully independent.
type MultiPool struct {
	rt     gpuruntime.Runtime
	config Config

	mu    sync.Mutex
	pools map[int]*DevicePool
}

// NewMultiPool creates a multi-device facade over rt.
func NewMultiPool(rt gpuruntime.Runtime, config Config) *MultiPool {
	return &MultiPool{rt: rt, config: config, pools: make(map[int]*DevicePool)}
}

func (m *MultiPool) poolFor(device int) *DevicePool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[device]
	if !ok {
		p = NewDevicePool(m.rt, device, m.config)
		m.pools[device] = p
	}
	return p
}

func (m *MultiPool) active() *DevicePool {
	return m.poolFor(m.rt.GetDevice())
}

func (m *MultiPool) Malloc(ctx context.Context, n int64) (rawmem.Pointer, error) {
	return m.active().Malloc(ctx, n)
}

func (m *MultiPool) FreeAllBlocks() int64 { return m.active().FreeAllBlocks() }
func (m *MultiPool) NFreeBlocks() int     { return m.active().NFreeBlocks() }
func (m *MultiPool) UsedBytes() int64     { return m.active().UsedBytes() }
func (m *MultiPool) FreeBytes() int64     { return m.active().FreeBytes() }
func (m *MultiPool) TotalBytes() int64    { return m.active().TotalBytes() }
func (m *MultiPool) Stats() Stats         { return m.active().Stats() }
