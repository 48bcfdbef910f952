package main

import (
	"fmt"
	"math/rand"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shenjiangwei/poolkit/pool"
)

var demoSeed int64

func init() {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a bounded, invariant-checked correctness demonstration",
		Long: `demo replaces a throughput benchmark with a fixed, seeded sequence
of allocate/free calls against an in-process RegionPool, checking after
each step that the used-block count matches the live set and that the
allocated size never exceeds the total size, and printing a short
report. Free-list order and list disjointness are not checked here. It
is a correctness demo, not a performance benchmark.`,
		Args: cobra.NoArgs,
		RunE: runDemo,
	}
	cmd.Flags().Int64Var(&demoSeed, "seed", 1, "seed for the pseudo-random allocation sequence")
	rootCmd.AddCommand(cmd)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	rng := rand.New(rand.NewSource(demoSeed))

	r := pool.NewRegionPool(pool.NewHeapBacking(), pool.WithMinBytes(4096))
	defer r.Close()

	var live []uintptr
	const steps = 500

	for i := 0; i < steps; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			addr := live[idx]
			if err := r.Deallocate(addr); err != nil {
				return fmt.Errorf("step %d: unexpected deallocate error: %w", i, err)
			}
			live = append(live[:idx], live[idx+1:]...)
		} else {
			size := uintptr(rng.Intn(2048) + 1)
			addr, err := r.Allocate(size)
			if err != nil {
				return fmt.Errorf("step %d: unexpected allocate error: %w", i, err)
			}
			live = append(live, addr)
		}

		if err := checkInvariants(r, len(live)); err != nil {
			return fmt.Errorf("step %d: invariant violated: %w", i, err)
		}
	}

	fmt.Fprintf(out, "ran %d steps, ending with %d live regions\n", steps, len(live))
	fmt.Fprintf(out, "allocated: %s\n", humanize.Bytes(uint64(r.AllocatedSize())))
	fmt.Fprintf(out, "total:     %s\n", humanize.Bytes(uint64(r.TotalSize())))
	fmt.Fprintf(out, "free blocks: %d, used blocks: %d\n", r.NumFreeBlocks(), r.NumUsedBlocks())
	fmt.Fprintln(out, "all checks passed")
	return nil
}

// checkInvariants re-verifies the invariants that are cheap to check
// from outside the package: used-block count matches the live set, and
// allocated size never exceeds total size.
func checkInvariants(r *pool.RegionPool, wantUsed int) error {
	if r.NumUsedBlocks() != wantUsed {
		return fmt.Errorf("used block count %d, want %d", r.NumUsedBlocks(), wantUsed)
	}
	if r.AllocatedSize() > r.TotalSize() {
		return fmt.Errorf("allocated size %d exceeds total size %d", r.AllocatedSize(), r.TotalSize())
	}
	return nil
}
