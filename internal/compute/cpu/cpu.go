// Package cpu is the pure Go reference label provider.
//
// Label i is the low LabelSize bits of
//
//	scrypt(identity || le64(i), salt, N, r, p, 32)
//
// packed LSB-first at bit offset (i-Start)*LabelSize of the job output.
// The index range is split into contiguous shards computed in parallel;
// shard boundaries fall on byte boundaries of the output so no two workers
// ever write the same byte.
package cpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/labels"
)

// Model is the model string the provider reports.
const Model = "Go scrypt reference"

// labelBytes is the scrypt output length; labels use its low bits.
const labelBytes = 32

// cancelCheckEvery is how many labels a worker computes between context
// checks.
const cancelCheckEvery = 256

// Runtime exposes a single CPU provider.
type Runtime struct {
	workers int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithWorkers sets the number of worker goroutines. Values below 1 select
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(r *Runtime) {
		r.workers = n
	}
}

// New returns a CPU runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.NumCPU()
	}
	return r
}

// Enumerate implements compute.Runtime.
func (r *Runtime) Enumerate(dst []compute.Provider) int {
	if dst == nil {
		return 1
	}
	if len(dst) == 0 {
		return 0
	}
	dst[0] = compute.Provider{ID: 0, Class: compute.ClassCPU, Model: Model}
	return 1
}

// ComputeLabels implements compute.Runtime.
func (r *Runtime) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	if id != 0 {
		return compute.Stats{}, fmt.Errorf("cpu: unknown provider id %d", id)
	}
	started := time.Now()
	count := job.Count()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range shards(count, job.LabelSize, r.workers) {
		g.Go(func() error {
			return computeRange(gctx, job, s.from, s.to)
		})
	}
	if err := g.Wait(); err != nil {
		return compute.Stats{}, err
	}

	stats := compute.Stats{Hashes: count}
	if secs := time.Since(started).Seconds(); secs > 0 {
		stats.HashesPerSec = uint64(float64(count) / secs)
	}
	return stats, nil
}

// Label computes the full 256-bit scrypt output for one index.
func Label(identity, salt [32]byte, index uint64, wf compute.WorkFactor) ([]byte, error) {
	var password [40]byte
	copy(password[:32], identity[:])
	binary.LittleEndian.PutUint64(password[32:], index)
	return scrypt.Key(password[:], salt[:], int(wf.N), int(wf.R), int(wf.P), labelBytes)
}

type shard struct {
	from, to uint64 // relative label offsets, half open
}

// shards splits count labels into at most n ranges whose bit boundaries
// are multiples of 8.
func shards(count uint64, labelSize uint32, n int) []shard {
	// Smallest label step that keeps a shard boundary byte aligned.
	step := uint64(8)
	for _, d := range []uint64{8, 4, 2} {
		if uint64(labelSize)%d == 0 {
			step = 8 / d
			break
		}
	}
	per := (count + uint64(n) - 1) / uint64(n)
	per = (per + step - 1) / step * step
	if per == 0 {
		per = step
	}
	var out []shard
	for from := uint64(0); from < count; from += per {
		out = append(out, shard{from: from, to: min(from+per, count)})
	}
	return out
}

func computeRange(ctx context.Context, job *compute.Job, from, to uint64) error {
	width := uint64(job.LabelSize)
	for rel := from; rel < to; rel++ {
		if (rel-from)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		value, err := Label(job.Identity, job.Salt, job.Start+rel, job.WorkFactor)
		if err != nil {
			return fmt.Errorf("cpu: label %d: %w", job.Start+rel, err)
		}
		labels.Put(job.Out, rel*width, value, job.LabelSize)
	}
	return nil
}
