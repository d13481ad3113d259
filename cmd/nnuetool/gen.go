package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hailam/nnueaffine/nnue"
	"github.com/hailam/nnueaffine/nnue/layers"
)

func newGenCmd(o *options) *cobra.Command {
	var (
		dims        string
		seed        int64
		output      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write a network file with seeded random parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.layerOptions()
			if err != nil {
				return err
			}
			arch, err := buildArchitecture(dims, opts)
			if err != nil {
				return err
			}
			if err := nnue.RandomizeParameters(arch, seed); err != nil {
				return err
			}

			net := nnue.NewNetwork(arch)
			net.NetDescription = description
			if net.NetDescription == "" {
				net.NetDescription = fmt.Sprintf("random %s seed=%d", arch, seed)
			}
			if err := net.Save(output); err != nil {
				return err
			}

			st, err := os.Stat(output)
			if err != nil {
				return err
			}
			o.log.V(1).Info("wrote network", "path", output, "hash", fmt.Sprintf("%08x", net.Hash))
			fmt.Printf("%s: %s, hash %08x, %s\n", output, arch, net.Hash, humanize.IBytes(uint64(st.Size())))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dims, "dims", "512,32,32", "input and hidden layer sizes")
	f.Int64Var(&seed, "seed", 1, "parameter seed")
	f.StringVarP(&output, "output", "o", "random.nnue", "output file")
	f.StringVar(&description, "description", "", "network description")
	return cmd
}

func buildArchitecture(dims string, opts []layers.Option) (*nnue.Architecture, error) {
	inputDims, hidden, err := nnue.ParseDimensions(dims)
	if err != nil {
		return nil, err
	}
	return nnue.NewArchitecture(inputDims, hidden, opts...)
}
