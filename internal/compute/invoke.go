package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/postbench/internal/layout"
)

// Clock returns the current time. Tests substitute a stepping clock.
type Clock func() time.Time

// Invoke runs job on provider p and measures the call.
//
// If the provider reports a zero throughput figure, Invoke derives one
// from the measured duration so reports always carry a number.
func Invoke(ctx context.Context, rt Runtime, p Provider, job *Job, now Clock) (Stats, error) {
	if now == nil {
		now = time.Now
	}
	if job.End < job.Start {
		return Stats{}, fmt.Errorf("invalid label range [%d, %d]", job.Start, job.End)
	}
	if job.LabelSize < 1 || job.LabelSize > 256 {
		return Stats{}, fmt.Errorf("invalid label size %d", job.LabelSize)
	}
	if need := layout.PackedSize(job.Count(), job.LabelSize); uint64(len(job.Out)) < need {
		return Stats{}, fmt.Errorf("output buffer holds %d bytes, job needs %d", len(job.Out), need)
	}

	start := now()
	stats, err := rt.ComputeLabels(ctx, p.ID, job)
	elapsed := now().Sub(start)
	if err != nil {
		return Stats{}, err
	}
	stats.Elapsed = elapsed
	if stats.HashesPerSec == 0 && elapsed > 0 {
		stats.HashesPerSec = uint64(float64(stats.Hashes) / elapsed.Seconds())
	}
	return stats, nil
}
