package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/klauspost/cpuid/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/hailam/nnueaffine/nnue/layers"
)

func newKernelsCmd(o *options) *cobra.Command {
	var features bool

	cmd := &cobra.Command{
		Use:   "kernels",
		Short: "List affine kernels and the one this host selects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			detected := layers.DetectKernel()
			def := layers.DefaultKernel()

			fmt.Printf("cpu:        %s (%s)\n", cpuid.CPU.BrandName, cpuid.CPU.VendorString)
			fmt.Printf("cores:      %d physical, %d logical\n", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
			fmt.Printf("cache line: %d bytes\n", cpuid.CPU.CacheLine)
			fmt.Printf("detected:   %s\n", detected.Name())
			if def.Name() != detected.Name() {
				fmt.Printf("override:   %s (via %s)\n", def.Name(), layers.KernelEnv)
			}
			fmt.Println()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			native := kernelNames(layers.NativeKernels())
			fmt.Fprintln(w, "KERNEL\tWIDTH\tKIND\t")
			for _, k := range layers.Kernels() {
				kind := "model"
				switch {
				case k.Name() == layers.Scalar.Name():
					kind = "reference"
				case lo.Contains(native, k.Name()):
					kind = "native"
				}
				mark := lo.Ternary(k.Name() == def.Name(), "*", "")
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", k.Name(), k.Width(), kind, mark)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if features {
				fmt.Println()
				fmt.Println("features:", strings.Join(cpuid.CPU.FeatureSet(), " "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&features, "features", false, "also print every CPU feature flag")
	return cmd
}

// kernelNames returns the names of ks in order.
func kernelNames(ks []layers.Kernel) []string {
	return lo.Map(ks, func(k layers.Kernel, _ int) string { return k.Name() })
}

// resolveKernels maps names to kernels. An empty list means every kernel.
func resolveKernels(names []string) ([]layers.Kernel, error) {
	if len(names) == 0 {
		return layers.Kernels(), nil
	}
	ks := make([]layers.Kernel, 0, len(names))
	for _, name := range names {
		k, ok := layers.KernelByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown kernel %q (have %s)", name, strings.Join(kernelNames(layers.Kernels()), ", "))
		}
		ks = append(ks, k)
	}
	return lo.UniqBy(ks, func(k layers.Kernel) string { return k.Name() }), nil
}
