package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/compute/cpu"
	"github.com/roach88/postbench/internal/compute/native"
	"github.com/roach88/postbench/internal/config"
	"github.com/roach88/postbench/internal/store"
)

// Env is the environment one invocation runs in. Zero fields select the
// production defaults.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// Runtime builds the compute runtime from the resolved options.
	Runtime func(config.Options) compute.Runtime

	// Entropy, if set, replaces both --seed and the system random source.
	Entropy io.Reader

	Clock compute.Clock
	IDs   store.IDGenerator

	args []string
}

// DefaultRuntime combines the native providers, if compiled in, with the
// Go CPU provider.
func DefaultRuntime(opts config.Options) compute.Runtime {
	return compute.Combine(native.New(), cpu.New(cpu.WithWorkers(opts.CPUWorkers)))
}

func (e *Env) withDefaults() *Env {
	out := *e
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}
	if out.Runtime == nil {
		out.Runtime = DefaultRuntime
	}
	if out.IDs == nil {
		out.IDs = store.UUIDv7Generator{}
	}
	return &out
}

// NewRootCommand creates the postbench command. Every mode is a flag of
// the root command.
func NewRootCommand(env *Env) *cobra.Command {
	env = env.withDefaults()

	cmd := &cobra.Command{
		Use:   "postbench",
		Short: "Conformance and benchmark harness for POST label providers",
		Long: `Checks that every label provider produces bit-identical output to a
reference provider and to fixed test vectors, and measures throughput.

Exactly one mode flag selects what to do; without one, this help is
printed.

Exit codes:
  0 - Success (a cross-provider mismatch is reported, not an exit failure)
  1 - Test vector mismatch, failed suite, or runtime error
  2 - Command error (ambiguous or conflicting flags, bad config, bad provider id)

Examples:
  postbench --list
  postbench --test -s 8 -n 1048576 --print
  postbench --benchmark --format json
  postbench --long-run --provider-id 1 --iters 100
  postbench --test-vector-check --db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, env)
		},
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)
	registerFlags(cmd.Flags())
	return cmd
}

// registerFlags declares config.Table on fs. Short forms shared by several
// flags get no pflag shorthand; NormalizeArgs rejects them before parsing.
func registerFlags(fs *pflag.FlagSet) {
	def := config.Defaults()
	for _, f := range config.Table {
		short := config.Shorthand(config.Table, f)
		switch {
		case !f.TakesValue:
			fs.BoolP(f.Long, short, false, f.Usage)
		case f.Long == "seed":
			fs.Uint64P(f.Long, short, 0, f.Usage)
		case f.Long == "labels-count":
			fs.StringP(f.Long, short, strconv.FormatUint(def.LabelsCount, 10), f.Usage)
		case f.Long == "label-size":
			fs.StringP(f.Long, short, strconv.FormatUint(uint64(def.LabelSize), 10), f.Usage)
		case f.Long == "iters":
			fs.StringP(f.Long, short, strconv.Itoa(def.Iterations), f.Usage)
		case f.Long == "provider-id", f.Long == "cpu-workers":
			fs.StringP(f.Long, short, "0", f.Usage)
		case f.Long == "reference-provider":
			fs.StringP(f.Long, short, strconv.Itoa(def.ReferenceProvider), f.Usage)
		case f.Long == "format":
			fs.StringP(f.Long, short, def.Format, f.Usage)
		default:
			fs.StringP(f.Long, short, "", f.Usage)
		}
	}
}

// Execute runs the command line args and returns the process exit code.
func Execute(env *Env, args []string) int {
	env = env.withDefaults()
	env.args = args

	norm, err := config.NormalizeArgs(config.Table, args)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCommand(env)
	cmd.SetArgs(norm)
	err = cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Flag parsing errors come straight from cobra.
		exitErr = WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	f := formatFor(cmd)
	if !(exitErr.Reported && f.JSON()) {
		f.Error(exitErr)
	}
	return exitErr.Code
}

// formatFor builds the output formatter from the parsed --format and
// --verbose flags, falling back to text when parsing failed.
func formatFor(cmd *cobra.Command) *OutputFormatter {
	f := &OutputFormatter{
		Format:    "text",
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
	if format, err := cmd.Flags().GetString("format"); err == nil && format == "json" {
		f.Format = format
	}
	f.Verbose, _ = cmd.Flags().GetBool("verbose")
	return f
}

// newLogger returns the diagnostic logger. Verbose runs log at debug
// level; otherwise only warnings and errors are shown.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
