package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/hailam/nnueaffine/internal/store"
	"github.com/hailam/nnueaffine/nnue/layers"
)

type options struct {
	db         string
	kernel     string
	verbosity  int
	cpuprofile string

	log     logr.Logger
	profile *os.File
}

// execute runs the command line in args. The CPU profile, if any, is
// stopped before it returns, whether or not the command failed.
func execute(args []string, stdout, stderr io.Writer) error {
	o := &options{}
	defer o.teardown()

	cmd := newRootCmd(o)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nnuetool",
		Short:         "Work with quantized NNUE affine layer stacks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.db, "db", "", "database directory (default $"+store.DBEnv+" or the user data dir)")
	flags.StringVar(&o.kernel, "kernel", "", "affine kernel to use (default $"+layers.KernelEnv+" or detected)")
	flags.IntVarP(&o.verbosity, "verbose", "v", 0, "log verbosity")
	flags.StringVar(&o.cpuprofile, "cpuprofile", "", "write cpu profile to file")

	cmd.AddCommand(
		newKernelsCmd(o),
		newGenCmd(o),
		newInspectCmd(o),
		newVerifyCmd(o),
		newBenchCmd(o),
		newStoreCmd(o),
	)
	return cmd
}

func (o *options) setup() error {
	stdr.SetVerbosity(o.verbosity)
	o.log = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	layers.SetLogger(o.log)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := o.cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		o.profile = f
		o.log.Info("CPU profiling enabled", "path", profilePath)
	}
	return nil
}

func (o *options) teardown() {
	if o.profile != nil {
		pprof.StopCPUProfile()
		o.profile.Close()
		o.profile = nil
	}
}

// layerOptions returns the kernel override for new architectures, if any.
func (o *options) layerOptions() ([]layers.Option, error) {
	if o.kernel == "" {
		return nil, nil
	}
	k, ok := layers.KernelByName(o.kernel)
	if !ok {
		return nil, fmt.Errorf("unknown kernel %q", o.kernel)
	}
	return []layers.Option{layers.WithKernel(k)}, nil
}

func (o *options) openStore() (*store.Store, error) {
	dir := o.db
	if dir == "" {
		var err error
		if dir, err = store.GetDatabaseDir(); err != nil {
			return nil, fmt.Errorf("failed to resolve database dir: %w", err)
		}
	}
	o.log.V(1).Info("opening store", "dir", dir)
	return store.Open(dir, o.log)
}
