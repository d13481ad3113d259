package main

import (
	"bufio"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hailam/nnueaffine/nnue"
)

func newInspectCmd(o *options) *cobra.Command {
	var dims string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print a network file's header and, with --dims, its layer table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			header, err := nnue.ReadHeader(bufio.NewReader(f))
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			fmt.Printf("file:        %s (%s)\n", path, humanize.IBytes(uint64(st.Size())))
			fmt.Printf("version:     %08x\n", header.Version)
			fmt.Printf("hash:        %08x\n", header.Hash)
			fmt.Printf("description: %q\n", header.Description)

			if dims == "" {
				return nil
			}
			opts, err := o.layerOptions()
			if err != nil {
				return err
			}
			arch, err := buildArchitecture(dims, opts)
			if err != nil {
				return err
			}
			fmt.Printf("\narchitecture %s, hash %08x, %s parameters, %s arena\n",
				arch, arch.HashValue(), humanize.IBytes(uint64(arch.ParameterSize())), humanize.IBytes(uint64(arch.BufferSize())))

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LAYER\tIN\tPADDED\tOUT\tSELF BUF\tHASH\tKERNEL")
			for i, fc := range arch.Affines {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%08x\t%s\n", i,
					fc.InputDimensions(), fc.PaddedInputDimensions(), fc.OutputDimensions(),
					fc.SelfBufferSize(), fc.HashValue(), fc.Kernel().Name())
			}
			if err := w.Flush(); err != nil {
				return err
			}

			net := nnue.NewNetwork(arch)
			if err := net.Load(path); err != nil {
				fmt.Printf("\nload: %v\n", err)
				return nil
			}
			fmt.Println("\nload: ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&dims, "dims", "", "input and hidden layer sizes to check the file against")
	return cmd
}
