package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/harness"
)

// RunSummary is one row of the run history.
type RunSummary struct {
	ID           string        `json:"id"`
	Mode         string        `json:"mode"`
	Outcome      string        `json:"outcome"`
	LabelSize    uint32        `json:"label_size"`
	LabelsCount  uint64        `json:"labels_count"`
	Args         []string      `json:"args"`
	Started      time.Time     `json:"started"`
	Elapsed      time.Duration `json:"elapsed"`
	Errors       int           `json:"errors"`
	Measurements int           `json:"measurements"`
	Mismatches   int           `json:"mismatches"`
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.mode, r.outcome, r.label_size, r.labels_count, r.args,
		       r.started_at, r.elapsed_ns, r.errors,
		       (SELECT COUNT(*) FROM measurements m WHERE m.run_id = r.id),
		       (SELECT COUNT(*) FROM mismatches x WHERE x.run_id = r.id)
		FROM runs r
		ORDER BY r.id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			run     RunSummary
			count   int64
			args    string
			started string
			elapsed int64
		)
		if err := rows.Scan(&run.ID, &run.Mode, &run.Outcome, &run.LabelSize, &count, &args,
			&started, &elapsed, &run.Errors, &run.Measurements, &run.Mismatches); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &run.Args); err != nil {
			return nil, fmt.Errorf("run %s: decode args: %w", run.ID, err)
		}
		run.Started, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %s: parse start time: %w", run.ID, err)
		}
		run.LabelsCount = uint64(count)
		run.Elapsed = time.Duration(elapsed)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadResult returns the full result stored for a run.
func (s *Store) ReadResult(ctx context.Context, runID string) (*harness.Result, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM runs WHERE id = ?`, runID).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	var r harness.Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("read run %s: decode result: %w", runID, err)
	}
	return &r, nil
}

// ReadMeasurements returns a run's measurements in recording order.
func (s *Store) ReadMeasurements(ctx context.Context, runID string) ([]harness.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_index, provider_class, provider_model, role, iteration,
		       label_size, labels, hashes, hashes_per_sec, elapsed_ns, digest
		FROM measurements
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	out := []harness.Measurement{}
	for rows.Next() {
		var (
			m                            harness.Measurement
			class, role                  string
			count, hashes, rate, elapsed int64
		)
		if err := rows.Scan(&m.ProviderIndex, &class, &m.Provider.Model, &role, &m.Iteration,
			&m.LabelSize, &count, &hashes, &rate, &elapsed, &m.Digest); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		if m.Provider.Class, err = compute.ParseClass(class); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.Provider.ID = compute.ID(m.ProviderIndex)
		m.Role = harness.Role(role)
		m.Labels = uint64(count)
		m.Hashes = uint64(hashes)
		m.HashesPerSec = uint64(rate)
		m.Elapsed = time.Duration(elapsed)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return out, nil
}

// ReadMismatches returns a run's failed comparisons with their samples
// decompressed.
func (s *Store) ReadMismatches(ctx context.Context, runID string) ([]harness.Comparison, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_index, provider_class, provider_model, against, label_size,
		       compared_bytes, first_mismatch, mismatched_bytes, blocks, sample, sample_len
		FROM mismatches
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query mismatches: %w", err)
	}
	defer rows.Close()

	out := []harness.Comparison{}
	for rows.Next() {
		var (
			c         harness.Comparison
			class     string
			blocks    string
			sample    []byte
			sampleLen int
		)
		if err := rows.Scan(&c.ProviderIndex, &class, &c.Provider.Model, &c.Against, &c.LabelSize,
			&c.Diff.Compared, &c.Diff.FirstMismatch, &c.Diff.MismatchedBytes, &blocks, &sample, &sampleLen); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		if c.Provider.Class, err = compute.ParseClass(class); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		c.Provider.ID = compute.ID(c.ProviderIndex)
		if err := json.Unmarshal([]byte(blocks), &c.Diff.Blocks); err != nil {
			return nil, fmt.Errorf("scan mismatch: decode blocks: %w", err)
		}
		if c.Expected, c.Actual, err = unpackSample(sample, sampleLen); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mismatches: %w", err)
	}
	return out, nil
}
