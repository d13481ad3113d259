package main

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/nnueaffine/nnue"
)

func newBenchCmd(o *options) *cobra.Command {
	var (
		dims    string
		seed    int64
		threads int
		iters   int
	)

	cmd := &cobra.Command{
		Use:   "bench [FILE]",
		Short: "Measure full-chain evaluations per second",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threads < 1 || iters < 1 {
				return fmt.Errorf("--threads and --iters must be positive")
			}
			opts, err := o.layerOptions()
			if err != nil {
				return err
			}
			arch, err := loadOrRandom(args, dims, seed, opts...)
			if err != nil {
				return err
			}
			eval := nnue.NewEvaluator(arch)

			const vectors = 64
			rng := rand.New(rand.NewSource(seed))
			inputs := make([][]uint8, vectors)
			for i := range inputs {
				inputs[i] = nnue.RandomFeatures(arch, rng)
			}

			var (
				total    atomic.Int64
				checksum atomic.Int64
			)
			ctx := cmd.Context()
			g, ctx := errgroup.WithContext(ctx)
			start := time.Now()
			for t := range threads {
				g.Go(func() error {
					var sum int64
					for i := range iters {
						if i%4096 == 0 {
							if err := ctx.Err(); err != nil {
								return err
							}
						}
						sum += int64(eval.Evaluate(inputs[(i+t)%vectors]))
					}
					total.Add(int64(iters))
					checksum.Add(sum)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			elapsed := time.Since(start)

			n := total.Load()
			perSec := float64(n) / elapsed.Seconds()
			fmt.Printf("architecture: %s (%s kernel)\n", arch, arch.Output().Kernel().Name())
			fmt.Printf("threads:      %d\n", threads)
			fmt.Printf("evaluations:  %s in %v\n", humanize.Comma(n), elapsed.Round(time.Millisecond))
			fmt.Printf("throughput:   %s eval/s, %v/eval\n", humanize.Comma(int64(perSec)), time.Duration(float64(elapsed)/float64(n)*float64(threads)))
			fmt.Printf("checksum:     %d\n", checksum.Load())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dims, "dims", "512,32,32", "input and hidden layer sizes")
	f.Int64Var(&seed, "seed", 1, "seed for parameters and inputs")
	f.IntVarP(&threads, "threads", "t", runtime.NumCPU(), "concurrent evaluators")
	f.IntVarP(&iters, "iters", "n", 1_000_000, "evaluations per thread")
	return cmd
}
