package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrampool/gpumempool/gpuruntime"
	"github.com/vrampool/gpumempool/pool"
)

func init() {
	rootCmd.AddCommand(newScenarioCmd())
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario <name>",
		Short: "Walk through one of the allocator's documented usage patterns",
		Long: `scenario runs one of a handful of small, deterministic sequences against a
fresh simulated pool and prints the pool's state after each step. It exists
to make the caching allocator's observable behavior concrete without reading
the test suite.

Available scenarios: round-trip, split, coalesce, stream-isolation, oom-retry`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := scenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q (try: round-trip, split, coalesce, stream-isolation, oom-retry)", args[0])
			}
			return fn()
		},
	}
}

var scenarios = map[string]func() error{
	"round-trip":       scenarioRoundTrip,
	"split":            scenarioSplit,
	"coalesce":         scenarioCoalesce,
	"stream-isolation": scenarioStreamIsolation,
	"oom-retry":        scenarioOOMRetry,
}

func report(p *pool.DevicePool, step string) {
	s := p.Stats()
	printInfo("%-28s  used=%-8d free=%-8d total=%-8d blocks=%d\n", step, s.UsedBytes, s.FreeBytes, s.TotalBytes, s.NFreeBlocks)
}

func scenarioRoundTrip() error {
	ctx := context.Background()
	p := pool.NewDevicePool(gpuruntime.NewSim(1), 0, pool.Config{})

	ptr, err := p.Malloc(ctx, 100)
	if err != nil {
		return err
	}
	report(p, "after malloc(100)")

	if err := ptr.Release(ctx); err != nil {
		return err
	}
	report(p, "after release")

	ptr2, err := p.Malloc(ctx, 100)
	if err != nil {
		return err
	}
	report(p, "after malloc(100) again")
	printInfo("reused same address: %v\n", ptr.Address() == ptr2.Address())
	return ptr2.Release(ctx)
}

func scenarioSplit() error {
	ctx := context.Background()
	p := pool.NewDevicePool(gpuruntime.NewSim(1), 0, pool.Config{})

	big, err := p.Malloc(ctx, 2048)
	if err != nil {
		return err
	}
	if err := big.Release(ctx); err != nil {
		return err
	}
	report(p, "after malloc(2048)+release")

	small, err := p.Malloc(ctx, 512)
	if err != nil {
		return err
	}
	report(p, "after malloc(512) split off")
	return small.Release(ctx)
}

func scenarioCoalesce() error {
	ctx := context.Background()
	p := pool.NewDevicePool(gpuruntime.NewSim(1), 0, pool.Config{})

	big, err := p.Malloc(ctx, 2048)
	if err != nil {
		return err
	}
	if err := big.Release(ctx); err != nil {
		return err
	}

	var chunks []interface {
		Release(context.Context) error
	}
	for i := 0; i < 4; i++ {
		c, err := p.Malloc(ctx, 512)
		if err != nil {
			return err
		}
		chunks = append(chunks, c)
	}
	report(p, "after four malloc(512)")

	for _, i := range []int{1, 3, 0, 2} {
		if err := chunks[i].Release(ctx); err != nil {
			return err
		}
		report(p, fmt.Sprintf("after release chunk %d", i))
	}
	return nil
}

func scenarioStreamIsolation() error {
	ctx := context.Background()
	p := pool.NewDevicePool(gpuruntime.NewSim(1), 0, pool.Config{})

	ctxA := gpuruntime.WithStream(ctx, gpuruntime.NewStream(1))
	ctxB := gpuruntime.WithStream(ctx, gpuruntime.NewStream(2))

	a, err := p.Malloc(ctxA, 512)
	if err != nil {
		return err
	}
	if err := a.Release(ctxA); err != nil {
		return err
	}
	report(p, "after stream A malloc+release")

	b, err := p.Malloc(ctxB, 512)
	if err != nil {
		return err
	}
	report(p, "after stream B malloc")
	printInfo("stream B reused stream A's chunk: %v\n", a.Address() == b.Address())
	return b.Release(ctxB)
}

func scenarioOOMRetry() error {
	ctx := context.Background()
	sim := gpuruntime.NewSim(1)
	p := pool.NewDevicePool(sim, 0, pool.Config{})

	whole, err := p.Malloc(ctx, 2048)
	if err != nil {
		return err
	}
	if err := whole.Release(ctx); err != nil {
		return err
	}
	report(p, "after malloc(2048)+release")

	sim.FailNextMallocs(1)
	printInfo("forced next raw allocation to report out-of-memory\n")

	ptr, err := p.Malloc(ctx, 4096)
	if err != nil {
		return fmt.Errorf("malloc(4096) should have succeeded after FreeAllBlocks retry: %w", err)
	}
	report(p, "after malloc(4096), recovered via FreeAllBlocks")
	return ptr.Release(ctx)
}
