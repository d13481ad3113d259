package nnue

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/nnueaffine/nnue/common"
	"github.com/hailam/nnueaffine/nnue/layers"
)

// KernelReport is the outcome of checking one kernel against the scalar
// reference.
type KernelReport struct {
	Kernel     string
	Rounds     int
	Mismatches int

	// First mismatch, if any.
	Layer    int
	Expected []int32
	Got      []int32
}

// OK reports whether the kernel matched on every round.
func (r KernelReport) OK() bool { return r.Mismatches == 0 }

// VerifyKernels propagates rounds random feature vectors through a copy of
// arch for every kernel and compares each affine layer's output with the
// scalar copy. Kernels are checked concurrently.
func VerifyKernels(ctx context.Context, arch *Architecture, kernels []layers.Kernel, rounds int, seed int64) ([]KernelReport, error) {
	ref, err := arch.Clone(layers.WithKernel(layers.Scalar))
	if err != nil {
		return nil, fmt.Errorf("failed to build reference: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	inputs := make([][]uint8, rounds)
	for i := range inputs {
		inputs[i] = RandomFeatures(arch, rng)
	}
	want := referenceOutputs(ref, inputs)

	reports := make([]KernelReport, len(kernels))
	g, ctx := errgroup.WithContext(ctx)
	for ki, k := range kernels {
		g.Go(func() error {
			c, err := arch.Clone(layers.WithKernel(k))
			if err != nil {
				return fmt.Errorf("%s: %w", k.Name(), err)
			}
			rep := KernelReport{Kernel: k.Name(), Layer: -1}
			arena := common.NewArena(c.BufferSize())
			for round, in := range inputs {
				if err := ctx.Err(); err != nil {
					return err
				}
				for li, fc := range c.Affines {
					got := fc.Propagate(in, arena.Bytes())
					if slices.Equal(got, want[round][li]) {
						continue
					}
					if rep.Mismatches == 0 {
						rep.Layer = li
						rep.Expected = want[round][li]
						rep.Got = slices.Clone(got)
					}
					rep.Mismatches++
				}
				rep.Rounds++
			}
			reports[ki] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func referenceOutputs(ref *Architecture, inputs [][]uint8) [][][]int32 {
	arena := common.NewArena(ref.BufferSize())
	out := make([][][]int32, len(inputs))
	for i, in := range inputs {
		out[i] = make([][]int32, len(ref.Affines))
		for li, fc := range ref.Affines {
			out[i][li] = slices.Clone(fc.Propagate(in, arena.Bytes()))
		}
	}
	return out
}
