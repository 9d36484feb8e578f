package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/roach88/postbench/internal/config"
	"github.com/roach88/postbench/internal/report"
	"github.com/roach88/postbench/internal/store"
)

// historyLimit bounds the runs listed by --history.
const historyLimit = 50

func runHistory(ctx context.Context, opts config.Options, f *OutputFormatter, printer *report.Printer) error {
	if opts.DBPath == "" {
		return NewExitError(ExitCommandError, "--history requires --db")
	}
	s, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open run database", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(ctx, historyLimit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}
	if f.JSON() {
		if err := f.Success("", runs); err != nil {
			return WrapExitError(ExitFailure, "failed to write output", err)
		}
		return nil
	}

	if len(runs) == 0 {
		printer.Println("No runs recorded.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Mode,
			run.Outcome,
			strconv.FormatUint(uint64(run.LabelSize), 10),
			printer.Count(run.LabelsCount),
			run.Started.Local().Format(time.DateTime),
			run.Elapsed.Round(time.Millisecond).String(),
			strconv.Itoa(run.Measurements),
			strconv.Itoa(run.Mismatches),
		})
	}
	printer.Table([]string{"ID", "MODE", "OUTCOME", "SIZE", "LABELS", "STARTED", "ELAPSED", "CALLS", "MISMATCHES"}, rows)
	return nil
}
