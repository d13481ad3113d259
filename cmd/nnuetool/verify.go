package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/hailam/nnueaffine/nnue"
	"github.com/hailam/nnueaffine/nnue/layers"
)

func newVerifyCmd(o *options) *cobra.Command {
	var (
		dims    string
		seed    int64
		rounds  int
		kernels []string
	)

	cmd := &cobra.Command{
		Use:   "verify [FILE]",
		Short: "Check every kernel against the scalar reference",
		Long: `Propagates seeded random feature vectors through each kernel and compares
every affine layer's output with the scalar kernel. Parameters come from FILE
when given, otherwise they are generated from --seed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := resolveKernels(kernels)
			if err != nil {
				return err
			}
			arch, err := loadOrRandom(args, dims, seed, layers.WithKernel(layers.Scalar))
			if err != nil {
				return err
			}

			reports, err := nnue.VerifyKernels(cmd.Context(), arch, ks, rounds, seed)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KERNEL\tROUNDS\tMISMATCHES\tRESULT")
			for _, r := range reports {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.Kernel, r.Rounds, r.Mismatches, lo.Ternary(r.OK(), "ok", "FAIL"))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			failed := lo.Filter(reports, func(r nnue.KernelReport, _ int) bool { return !r.OK() })
			for _, r := range failed {
				o.log.Info("kernel mismatch", "kernel", r.Kernel, "layer", r.Layer, "expected", r.Expected, "got", r.Got)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d kernels disagree with scalar", len(failed), len(reports))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dims, "dims", "512,32,32", "input and hidden layer sizes")
	f.Int64Var(&seed, "seed", 1, "seed for parameters and inputs")
	f.IntVar(&rounds, "rounds", 1000, "feature vectors per kernel")
	f.StringSliceVar(&kernels, "kernels", nil, "kernels to check (default all)")
	return cmd
}

// loadOrRandom builds the architecture for dims and fills it from the file
// named in args, or from seed when args is empty.
func loadOrRandom(args []string, dims string, seed int64, opts ...layers.Option) (*nnue.Architecture, error) {
	arch, err := buildArchitecture(dims, opts)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return arch, nnue.RandomizeParameters(arch, seed)
	}
	if err := nnue.NewNetwork(arch).Load(args[0]); err != nil {
		return nil, err
	}
	return arch, nil
}
