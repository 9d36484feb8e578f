package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/postbench/internal/harness"
)

// RecordRun stores r under id together with the command line that
// produced it. The run, its measurements and its mismatches are written in
// one transaction.
func (s *Store) RecordRun(ctx context.Context, id string, args []string, r *harness.Result) error {
	resultJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("record run: marshal result: %w", err)
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("record run: marshal args: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, outcome, label_size, labels_count, args, started_at, elapsed_ns, errors, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		r.Mode,
		string(r.Outcome),
		r.LabelSize,
		int64(r.LabelsCount),
		string(argsJSON),
		r.Started.UTC().Format(time.RFC3339Nano),
		int64(r.Elapsed),
		len(r.Errors),
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for i, m := range r.Measurements {
		if err := writeMeasurement(ctx, tx, id, i, m); err != nil {
			return err
		}
	}
	for i, c := range r.Mismatches() {
		if err := writeMismatch(ctx, tx, id, i, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	return nil
}

func writeMeasurement(ctx context.Context, tx *sql.Tx, runID string, seq int, m harness.Measurement) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO measurements
		(run_id, seq, provider_index, provider_class, provider_model, role, iteration,
		 label_size, labels, hashes, hashes_per_sec, elapsed_ns, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		m.ProviderIndex,
		m.Provider.Class.String(),
		m.Provider.Model,
		string(m.Role),
		m.Iteration,
		m.LabelSize,
		int64(m.Labels),
		int64(m.Hashes),
		int64(m.HashesPerSec),
		int64(m.Elapsed),
		m.Digest,
	)
	if err != nil {
		return fmt.Errorf("write measurement %d: %w", seq, err)
	}
	return nil
}

func writeMismatch(ctx context.Context, tx *sql.Tx, runID string, seq int, c harness.Comparison) error {
	blocks, err := json.Marshal(c.Diff.Blocks)
	if err != nil {
		return fmt.Errorf("write mismatch %d: %w", seq, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO mismatches
		(run_id, seq, provider_index, provider_class, provider_model, against, label_size,
		 compared_bytes, first_mismatch, mismatched_bytes, blocks, sample, sample_len)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		c.ProviderIndex,
		c.Provider.Class.String(),
		c.Provider.Model,
		c.Against,
		c.LabelSize,
		c.Diff.Compared,
		c.Diff.FirstMismatch,
		c.Diff.MismatchedBytes,
		string(blocks),
		packSample(c.Expected, c.Actual),
		len(c.Expected),
	)
	if err != nil {
		return fmt.Errorf("write mismatch %d: %w", seq, err)
	}
	return nil
}
