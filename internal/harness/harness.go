package harness

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/labels"
	"github.com/roach88/postbench/internal/layout"
	"github.com/roach88/postbench/internal/report"
)

// SampleSize bounds the bytes kept from each side of a mismatch, starting
// at the block holding the first differing byte.
const SampleSize = 4096

// DefaultCancelGrace is how long the cancelation suite waits for a
// provider to return after its context is canceled.
const DefaultCancelGrace = 5 * time.Second

// DefaultCancelDelay is how long the cancelation suite lets a provider run
// before canceling it.
const DefaultCancelDelay = 50 * time.Millisecond

// Harness runs conformance and benchmark modes against a compute runtime.
//
// A Harness is not safe for concurrent use; modes run one at a time.
type Harness struct {
	rt      compute.Runtime
	out     *report.Printer
	logger  *slog.Logger
	entropy io.Reader
	now     compute.Clock
	alloc   layout.Allocator

	cancelGrace time.Duration
	cancelDelay time.Duration
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the diagnostic logger. Progress lines go to the printer,
// not the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithEntropy sets the source of random identities and salts.
func WithEntropy(r io.Reader) Option {
	return func(h *Harness) { h.entropy = r }
}

// WithClock sets the clock used to time provider calls.
func WithClock(now compute.Clock) Option {
	return func(h *Harness) { h.now = now }
}

// WithAllocator sets the buffer allocator.
func WithAllocator(a layout.Allocator) Option {
	return func(h *Harness) { h.alloc = a }
}

// WithCancelGrace sets how long the cancelation suite waits for a provider
// to honor cancelation.
func WithCancelGrace(d time.Duration) Option {
	return func(h *Harness) { h.cancelGrace = d }
}

// WithCancelDelay sets how long the cancelation suite lets a provider run
// before canceling it.
func WithCancelDelay(d time.Duration) Option {
	return func(h *Harness) { h.cancelDelay = d }
}

// New creates a Harness over rt that prints progress to out.
func New(rt compute.Runtime, out *report.Printer, opts ...Option) *Harness {
	h := &Harness{
		rt:          rt,
		out:         out,
		logger:      slog.New(slog.DiscardHandler),
		entropy:     rand.Reader,
		now:         time.Now,
		alloc:       layout.Allocate,
		cancelGrace: DefaultCancelGrace,
		cancelDelay: DefaultCancelDelay,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// providers enumerates the runtime. ErrNoProviders is reported on the
// printer and returned unchanged so callers can map it to an outcome.
func (h *Harness) providers() ([]compute.Provider, error) {
	providers, err := compute.Enumerate(h.rt)
	if err != nil {
		h.logger.Debug("enumeration failed", "error", err)
		return nil, err
	}
	h.logger.Debug("enumerated providers", "count", len(providers))
	return providers, nil
}

// inputs draws a fresh identity and salt.
func (h *Harness) inputs() (identity, salt [32]byte, err error) {
	if _, err = io.ReadFull(h.entropy, identity[:]); err != nil {
		return identity, salt, fmt.Errorf("read identity: %w", err)
	}
	if _, err = io.ReadFull(h.entropy, salt[:]); err != nil {
		return identity, salt, fmt.Errorf("read salt: %w", err)
	}
	return identity, salt, nil
}

// invoke runs one labeling call over labels [0, count) into out and
// returns the measurement for it.
func (h *Harness) invoke(ctx context.Context, index int, p compute.Provider, role Role, identity, salt [32]byte, labelSize uint32, count uint64, out []byte) (Measurement, error) {
	return h.invokeRange(ctx, index, p, role, identity, salt, labelSize, 0, count, out)
}

// invokeRange runs one labeling call over labels [start, start+count).
func (h *Harness) invokeRange(ctx context.Context, index int, p compute.Provider, role Role, identity, salt [32]byte, labelSize uint32, start, count uint64, out []byte) (Measurement, error) {
	if count == 0 {
		return Measurement{}, &compute.ProviderError{Index: index, Provider: p, Err: errors.New("empty label range")}
	}
	job := &compute.Job{
		Identity:   identity,
		Salt:       salt,
		LabelSize:  labelSize,
		Start:      start,
		End:        start + count - 1,
		WorkFactor: compute.DefaultWorkFactor,
		Out:        out,
	}
	h.logger.Debug("invoking provider",
		"index", index,
		"provider", p.String(),
		"role", role,
		"label_size", labelSize,
		"start", start,
		"labels", count,
	)
	stats, err := compute.Invoke(ctx, h.rt, p, job, h.now)
	if err != nil {
		return Measurement{}, &compute.ProviderError{Index: index, Provider: p, Err: err}
	}
	packed := layout.PackedSize(count, labelSize)
	m := Measurement{
		ProviderIndex: index,
		Provider:      p,
		Role:          role,
		LabelSize:     labelSize,
		Labels:        count,
		Hashes:        stats.Hashes,
		HashesPerSec:  stats.HashesPerSec,
		Elapsed:       stats.Elapsed,
		Digest:        labels.Sum(out[:packed]).String(),
	}
	h.logger.Debug("provider finished",
		"index", index,
		"hashes", stats.Hashes,
		"hashes_per_sec", stats.HashesPerSec,
		"elapsed", stats.Elapsed,
	)
	return m, nil
}

// buffer allocates a zeroed buffer for count labels of labelSize bits.
func (h *Harness) buffer(count uint64, labelSize uint32) ([]byte, error) {
	packed := layout.PackedSize(count, labelSize)
	buf, err := h.alloc(layout.AlignedSize(packed))
	if err != nil {
		return nil, err
	}
	return buf[:packed], nil
}

// compare builds a Comparison over the first n bytes of ref and got.
func compare(index int, p compute.Provider, against string, labelSize uint32, ref, got []byte, n uint64) Comparison {
	c := Comparison{
		ProviderIndex: index,
		Provider:      p,
		Against:       against,
		LabelSize:     labelSize,
		Diff:          labels.Compare(ref, got, int(n)),
	}
	if !c.Diff.Equal() {
		blk := c.Diff.FirstMismatch / labels.BlockSize * labels.BlockSize
		end := min(blk+SampleSize, c.Diff.Compared)
		c.Expected = append([]byte(nil), ref[blk:end]...)
		c.Actual = append([]byte(nil), got[blk:end]...)
	}
	return c
}

// finish stamps the elapsed time on r.
func (h *Harness) finish(r *Result) *Result {
	r.Elapsed = h.now().Sub(r.Started)
	return r
}

// noProviders fills r for a runtime that reported zero providers.
func (h *Harness) noProviders(r *Result) *Result {
	h.out.Println("There are no POST computation providers available.")
	r.Outcome = OutcomeNoProviders
	r.AddNote(compute.ErrNoProviders.Error())
	return h.finish(r)
}
