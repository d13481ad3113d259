package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/hailam/nnueaffine/internal/store"
)

func newStoreCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage network files in the local store",
	}
	cmd.AddCommand(
		newStorePutCmd(o),
		newStoreGetCmd(o),
		newStoreListCmd(o),
		newStoreRemoveCmd(o),
	)
	return cmd
}

// withStore opens the store for the duration of fn.
func withStore(o *options, fn func(s *store.Store) error) error {
	s, err := o.openStore()
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func newStorePutCmd(o *options) *cobra.Command {
	var dims string

	cmd := &cobra.Command{
		Use:   "put FILE...",
		Short: "Validate and store network files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(s *store.Store) error {
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					e, err := s.Put(dims, data)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fmt.Printf("%016x  %08x  %s -> %s  %s\n", e.ID, e.Hash, humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Stored)), path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dims, "dims", "512,32,32", "input and hidden layer sizes the files were written for")
	return cmd
}

func newStoreGetCmd(o *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Write a stored network back to a file",
		Long: `Writes the network stored under ID to a file. ID may be any unique prefix
of the id shown by "store ls".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(s *store.Store) error {
				id, err := s.Resolve(args[0])
				if err != nil {
					return err
				}
				e, data, err := s.Get(id)
				if err != nil {
					return err
				}
				path := output
				if path == "" {
					path = fmt.Sprintf("nn-%08x-%016x.nnue", e.Hash, e.ID)
				}
				if err := os.WriteFile(path, data, 0644); err != nil {
					return err
				}
				fmt.Printf("%s (%s)\n", path, humanize.IBytes(uint64(len(data))))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default nn-HASH-ID.nnue)")
	return cmd
}

func newStoreListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored networks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(s *store.Store) error {
				entries, err := s.List()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tHASH\tDIMS\tSIZE\tSTORED\tADDED\tDESCRIPTION")
				for _, e := range entries {
					fmt.Fprintf(w, "%016x\t%08x\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Hash, e.Dims,
						humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Stored)),
						humanize.Time(e.Added), e.Description)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				size := lo.SumBy(entries, func(e store.Entry) int { return e.Stored })
				fmt.Printf("%d networks, %s stored\n", len(entries), humanize.IBytes(uint64(size)))
				return nil
			})
		},
	}
}

func newStoreRemoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"remove"},
		Short:   "Delete stored networks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(s *store.Store) error {
				for _, a := range args {
					id, err := s.Resolve(a)
					if err != nil {
						return err
					}
					if err := s.Delete(id); err != nil {
						return fmt.Errorf("%016x: %w", id, err)
					}
					o.log.V(1).Info("deleted network", "id", fmt.Sprintf("%016x", id))
				}
				return nil
			})
		},
	}
}
