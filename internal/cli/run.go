package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/config"
	"github.com/roach88/postbench/internal/harness"
	"github.com/roach88/postbench/internal/layout"
	"github.com/roach88/postbench/internal/metrics"
	"github.com/roach88/postbench/internal/report"
	"github.com/roach88/postbench/internal/store"
	"github.com/roach88/postbench/internal/testvector"
)

// run resolves the options and executes the selected mode.
func run(cmd *cobra.Command, env *Env) error {
	opts, err := config.Resolve(cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	if opts.Mode == config.ModeUsage {
		return cmd.Help()
	}

	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    env.Stdout,
		ErrWriter: env.Stderr,
		Verbose:   opts.Verbose,
	}
	logger := newLogger(env.Stderr, opts.Verbose)
	printer := report.New(f.ProgressWriter())
	ctx := cmd.Context()

	logger.Debug("resolved options",
		"mode", opts.Mode,
		"label_size", opts.LabelSize,
		"labels_count", opts.LabelsCount,
		"iterations", opts.Iterations,
		"config", opts.ConfigPath,
	)

	if opts.Mode == config.ModeHistory {
		return runHistory(ctx, opts, f, printer)
	}

	hopts := []harness.Option{harness.WithLogger(logger)}
	switch {
	case env.Entropy != nil:
		hopts = append(hopts, harness.WithEntropy(env.Entropy))
	case opts.Seeded:
		hopts = append(hopts, harness.WithEntropy(harness.SeededEntropy(opts.Seed)))
	}
	if env.Clock != nil {
		hopts = append(hopts, harness.WithClock(env.Clock))
	}
	h := harness.New(env.Runtime(opts), printer, hopts...)

	res, err := dispatch(ctx, h, opts)
	if err != nil {
		return fatal(err)
	}
	if err := res.Err(); err != nil {
		logger.Warn("provider failures", "count", len(res.Errors), "error", err)
	}

	runID, err := record(ctx, env, opts, res, logger)
	if err != nil {
		return err
	}
	if err := f.Success(runID, res); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	return exitFor(opts.Mode, res)
}

// dispatch runs the mode selected by opts.
func dispatch(ctx context.Context, h *harness.Harness, opts config.Options) (*harness.Result, error) {
	p := harness.Params{
		LabelSize:         opts.LabelSize,
		LabelsCount:       opts.LabelsCount,
		Iterations:        opts.Iterations,
		ProviderID:        opts.ProviderID,
		ReferenceProvider: opts.ReferenceProvider,
		ReferenceClamp:    opts.ReferenceClamp,
		Print:             opts.Print,
	}

	switch opts.Mode {
	case config.ModeList:
		return h.List()
	case config.ModeBenchmark:
		return h.Benchmark(ctx, p)
	case config.ModeCrossValidate:
		return h.CrossValidate(ctx, p)
	case config.ModeLongRun:
		return h.LongRun(ctx, p)
	case config.ModeTestVectorCheck:
		v := testvector.Default()
		if opts.VectorPath != "" {
			loaded, err := testvector.Load(opts.VectorPath)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to load test vector", err)
			}
			v = loaded
		}
		return h.CheckVector(ctx, v, opts.Print)
	case config.ModeTestVectorCreate:
		res, v, err := h.CreateVector(ctx)
		if err != nil || v == nil || opts.OutputPath == "" {
			return res, err
		}
		if err := v.Save(opts.OutputPath); err != nil {
			return nil, WrapExitError(ExitFailure, "failed to save test vector", err)
		}
		res.AddNote("test vector written to " + opts.OutputPath)
		return res, nil
	case config.ModeUnitTests:
		return h.UnitTests(ctx)
	case config.ModeIntegrationTests:
		return h.IntegrationTests(ctx)
	case config.ModeIntegrationLength:
		return h.IntegrationLength(ctx)
	case config.ModeIntegrationLabels:
		return h.IntegrationLabels(ctx)
	case config.ModeIntegrationConcurrency:
		return h.IntegrationConcurrency(ctx)
	case config.ModeIntegrationCancelation:
		return h.IntegrationCancelation(ctx)
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unsupported mode %s", opts.Mode))
	}
}

// fatal maps an aborting harness error to an exit code.
func fatal(err error) error {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return err
	case compute.IsOutOfBounds(err):
		return WrapExitError(ExitCommandError, "invalid provider id", err)
	case errors.Is(err, layout.ErrAllocation):
		return WrapExitError(ExitFailure, "buffer allocation failed", err)
	default:
		return WrapExitError(ExitFailure, "run aborted", err)
	}
}

// exitFor decides the exit status of a completed mode. Cross-provider
// mismatches and benchmark errors are reported but do not fail the
// process; test vector checks, suites and divergent long runs do.
func exitFor(mode config.Mode, res *harness.Result) error {
	switch mode {
	case config.ModeTestVectorCheck,
		config.ModeUnitTests,
		config.ModeIntegrationTests,
		config.ModeIntegrationLength,
		config.ModeIntegrationLabels,
		config.ModeIntegrationConcurrency,
		config.ModeIntegrationCancelation:
		if res.Passed() {
			return nil
		}
	case config.ModeLongRun:
		if res.Outcome != harness.OutcomeFail {
			return nil
		}
	default:
		return nil
	}
	return &ExitError{
		Code:     ExitFailure,
		Message:  fmt.Sprintf("%s: %s", mode, res.Outcome),
		Reported: true,
	}
}

// record writes res to the run store and the metrics file when they are
// configured. It returns the run id, or "" when nothing was stored.
func record(ctx context.Context, env *Env, opts config.Options, res *harness.Result, logger *slog.Logger) (string, error) {
	if !opts.Mode.Records() {
		return "", nil
	}

	if opts.MetricsFile != "" {
		rec := metrics.New()
		rec.Observe(res)
		if err := rec.WriteFile(opts.MetricsFile); err != nil {
			return "", WrapExitError(ExitFailure, "failed to write metrics", err)
		}
		logger.Debug("metrics written", "path", opts.MetricsFile)
	}

	if opts.DBPath == "" {
		return "", nil
	}
	s, err := store.Open(opts.DBPath)
	if err != nil {
		return "", WrapExitError(ExitFailure, "failed to open run database", err)
	}
	defer s.Close()

	id := env.IDs.Generate()
	if err := s.RecordRun(ctx, id, env.args, res); err != nil {
		return "", WrapExitError(ExitFailure, "failed to record run", err)
	}
	logger.Debug("run recorded", "id", id, "db", opts.DBPath)
	return id, nil
}
