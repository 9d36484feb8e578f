package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/labels"
	"github.com/roach88/postbench/internal/layout"
	"github.com/roach88/postbench/internal/testvector"
)

// Suite parameters. Counts stay small so the CPU reference finishes in
// seconds.
var (
	lengthSuiteSizes  = []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 15, 16, 17, 31, 32, 33, 63, 64, 100, 128, 200, 255, 256}
	lengthSuiteLabels = uint64(512)

	labelsSuiteSizes  = []uint32{1, 8, 13}
	labelsSuiteCounts = []uint64{1, 2, 7, 8, 9, 31, 32, 33, 255, 256, 257, 1000, 4096, 4097}

	concurrencySuiteSize   = uint32(8)
	concurrencySuiteLabels = uint64(2048)

	cancelSuiteSize   = uint32(8)
	cancelSuiteLabels = uint64(1 << 20)

	unitPrefixLabels = uint64(1024)
)

// UnitTests runs fast self-checks of the packing arithmetic and, when a
// CPU provider exists, of its determinism and agreement with the embedded
// test vector.
func (h *Harness) UnitTests(ctx context.Context) (*Result, error) {
	r := NewResult("unit-tests")
	r.Started = h.now()

	r.AddCheck(checkPackedSizes())
	r.AddCheck(checkPackRoundTrip())
	r.AddCheck(checkPrefixCompare())
	r.AddCheck(checkEmbeddedVector())

	providers, err := compute.Enumerate(h.rt)
	if err != nil && !errors.Is(err, compute.ErrNoProviders) {
		return nil, err
	}
	r.Providers = providers
	idx := compute.FirstOfClass(providers, compute.Class.IsCPU)
	if idx < 0 {
		r.AddNote("no CPU provider, provider checks skipped")
	} else {
		c, err := h.checkDeterminism(ctx, idx, providers[idx])
		if err != nil {
			return nil, err
		}
		r.AddCheck(c)
		c, err = h.checkVectorPrefix(ctx, idx, providers[idx])
		if err != nil {
			return nil, err
		}
		r.AddCheck(c)
	}
	return h.endSuite(r), nil
}

// IntegrationLength cross-validates every label size from 1 to 256 bits
// and checks that every provider computes split ranges consistently.
func (h *Harness) IntegrationLength(ctx context.Context) (*Result, error) {
	r := NewResult("integration-test-length")
	r.Started = h.now()
	providers, ok, err := h.suiteProviders(r)
	if !ok {
		return r, err
	}
	for _, size := range lengthSuiteSizes {
		if err := h.crossCheck(ctx, r, providers, fmt.Sprintf("length/%d", size), size, lengthSuiteLabels); err != nil {
			return nil, err
		}
	}
	return h.endSuite(r), nil
}

// IntegrationLabels cross-validates counts around byte and block
// boundaries.
func (h *Harness) IntegrationLabels(ctx context.Context) (*Result, error) {
	r := NewResult("integration-test-labels")
	r.Started = h.now()
	providers, ok, err := h.suiteProviders(r)
	if !ok {
		return r, err
	}
	for _, size := range labelsSuiteSizes {
		for _, count := range labelsSuiteCounts {
			if err := h.crossCheck(ctx, r, providers, fmt.Sprintf("labels/%d/%d", size, count), size, count); err != nil {
				return nil, err
			}
		}
	}
	return h.endSuite(r), nil
}

// IntegrationConcurrency runs all providers at once and checks that each
// produces the same output it produces alone.
func (h *Harness) IntegrationConcurrency(ctx context.Context) (*Result, error) {
	r := NewResult("integration-test-concurrency")
	r.Started = h.now()
	providers, ok, err := h.suiteProviders(r)
	if !ok {
		return r, err
	}
	identity, salt, err := h.inputs()
	if err != nil {
		return nil, err
	}

	alone, err := layout.NewArena(h.alloc, len(providers), concurrencySuiteLabels, concurrencySuiteSize)
	if err != nil {
		return nil, err
	}
	together, err := layout.NewArena(h.alloc, len(providers), concurrencySuiteLabels, concurrencySuiteSize)
	if err != nil {
		return nil, err
	}

	failed := make([]bool, len(providers))
	for i, prov := range providers {
		if _, err := h.invoke(ctx, i, prov, RoleSuite, identity, salt, concurrencySuiteSize, concurrencySuiteLabels, alone.Region(i)); err != nil {
			r.AddError(err)
			failed[i] = true
		}
	}

	h.out.Printf("Running %d providers concurrently\n", len(providers))
	var g errgroup.Group
	errs := make([]error, len(providers))
	for i, prov := range providers {
		g.Go(func() error {
			_, errs[i] = h.invoke(ctx, i, prov, RoleSuite, identity, salt, concurrencySuiteSize, concurrencySuiteLabels, together.Region(i))
			return nil
		})
	}
	_ = g.Wait()

	for i, prov := range providers {
		name := fmt.Sprintf("concurrency/%d", i)
		switch {
		case failed[i]:
			continue
		case errs[i] != nil:
			r.AddError(errs[i])
			r.AddCheck(Check{Name: name, Detail: errs[i].Error()})
			continue
		}
		d := labels.Compare(alone.Region(i), together.Region(i), int(alone.Packed))
		c := Check{Name: name, Pass: d.Equal()}
		if !c.Pass {
			c.Detail = fmt.Sprintf("%d bytes differ, first at offset %d", d.MismatchedBytes, d.FirstMismatch)
		}
		h.printCheck(c, prov)
		r.AddCheck(c)
	}
	return h.endSuite(r), nil
}

// IntegrationCancelation cancels a long computation on every provider and
// checks that the provider returns within the cancel grace period.
func (h *Harness) IntegrationCancelation(ctx context.Context) (*Result, error) {
	r := NewResult("integration-test-cancelation")
	r.Started = h.now()
	providers, ok, err := h.suiteProviders(r)
	if !ok {
		return r, err
	}
	identity, salt, err := h.inputs()
	if err != nil {
		return nil, err
	}

	for i, prov := range providers {
		out, err := h.buffer(cancelSuiteLabels, cancelSuiteSize)
		if err != nil {
			return nil, err
		}
		c := h.checkCancel(ctx, i, prov, identity, salt, out)
		h.printCheck(c, prov)
		r.AddCheck(c)
	}
	return h.endSuite(r), nil
}

// IntegrationTests runs every integration suite and merges their checks.
func (h *Harness) IntegrationTests(ctx context.Context) (*Result, error) {
	r := NewResult("integration-tests")
	r.Started = h.now()

	suites := []func(context.Context) (*Result, error){
		h.IntegrationLength,
		h.IntegrationLabels,
		h.IntegrationConcurrency,
		h.IntegrationCancelation,
	}
	for _, run := range suites {
		sub, err := run(ctx)
		if err != nil {
			return nil, err
		}
		if sub.Outcome == OutcomeNoProviders {
			r.Outcome = OutcomeNoProviders
			r.Notes = sub.Notes
			return h.finish(r), nil
		}
		r.Providers = sub.Providers
		r.Measurements = append(r.Measurements, sub.Measurements...)
		r.Comparisons = append(r.Comparisons, sub.Comparisons...)
		r.Notes = append(r.Notes, sub.Notes...)
		for _, c := range sub.Checks {
			r.AddCheck(c)
		}
		if err := sub.Err(); err != nil {
			for _, e := range multierr.Errors(err) {
				r.AddError(e)
			}
		}
	}
	return h.endSuite(r), nil
}

// suiteProviders enumerates for a suite. ok is false when the suite
// cannot run; err is set only for fatal enumeration failures.
func (h *Harness) suiteProviders(r *Result) ([]compute.Provider, bool, error) {
	providers, err := h.providers()
	if errors.Is(err, compute.ErrNoProviders) {
		h.noProviders(r)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r.Providers = providers
	return providers, true, nil
}

// crossCheck runs one cross-provider validation plus a split-range check
// per provider, recording both as checks named after prefix.
func (h *Harness) crossCheck(ctx context.Context, r *Result, providers []compute.Provider, prefix string, size uint32, count uint64) error {
	identity, salt, err := h.inputs()
	if err != nil {
		return err
	}
	sub := NewResult(r.Mode)
	p := Params{
		LabelSize:         size,
		LabelsCount:       count,
		ReferenceProvider: AutoReference,
	}
	if err := h.validate(ctx, sub, providers, p, identity, salt); err != nil {
		return err
	}
	r.Measurements = append(r.Measurements, sub.Measurements...)
	r.Comparisons = append(r.Comparisons, sub.Comparisons...)
	if err := sub.Err(); err != nil {
		for _, e := range multierr.Errors(err) {
			r.AddError(e)
		}
	}
	cross := Check{Name: prefix + "/cross"}
	switch sub.Outcome {
	case OutcomePass:
		cross.Pass = true
	case OutcomeNotPerformed:
		cross.Skipped = true
		cross.Detail = sub.Notes[len(sub.Notes)-1]
	default:
		cross.Detail = fmt.Sprintf("%d mismatches, %d provider errors", len(sub.Mismatches()), len(sub.Errors))
	}
	r.AddCheck(cross)

	if count < 2 {
		return nil
	}
	for i, prov := range providers {
		c, err := h.checkSplit(ctx, i, prov, identity, salt, size, count)
		if err != nil {
			r.AddError(err)
		}
		c.Name = fmt.Sprintf("%s/split/%d", prefix, i)
		r.AddCheck(c)
	}
	return nil
}

// checkSplit computes [0, count) in one call and again as two calls split
// at count/2, then checks the stitched halves match the single call. Both
// buffers leave the padding bits of the last byte zero, so the whole packed
// size is compared. count must be at least 2.
func (h *Harness) checkSplit(ctx context.Context, index int, prov compute.Provider, identity, salt [32]byte, size uint32, count uint64) (Check, error) {
	whole, err := h.buffer(count, size)
	if err != nil {
		return Check{}, err
	}
	if _, err := h.invoke(ctx, index, prov, RoleSuite, identity, salt, size, count, whole); err != nil {
		return Check{Detail: err.Error()}, err
	}

	split := count / 2
	head, err := h.buffer(split, size)
	if err != nil {
		return Check{}, err
	}
	tail, err := h.buffer(count-split, size)
	if err != nil {
		return Check{}, err
	}
	if _, err := h.invokeRange(ctx, index, prov, RoleSuite, identity, salt, size, 0, split, head); err != nil {
		return Check{Detail: err.Error()}, err
	}
	if _, err := h.invokeRange(ctx, index, prov, RoleSuite, identity, salt, size, split, count-split, tail); err != nil {
		return Check{Detail: err.Error()}, err
	}

	stitched, err := h.buffer(count, size)
	if err != nil {
		return Check{}, err
	}
	for i := uint64(0); i < split; i++ {
		labels.Put(stitched, i*uint64(size), labels.Get(head, i, size), size)
	}
	for i := uint64(0); i < count-split; i++ {
		labels.Put(stitched, (split+i)*uint64(size), labels.Get(tail, i, size), size)
	}

	d := labels.Compare(whole, stitched, int(layout.PackedSize(count, size)))
	c := Check{Pass: d.Equal()}
	if !c.Pass {
		c.Detail = fmt.Sprintf("split at label %d: %d bytes differ, first at offset %d", split, d.MismatchedBytes, d.FirstMismatch)
	}
	return c, nil
}

// checkCancel starts a long computation, cancels it once the provider is
// running and checks that the provider returns context.Canceled within
// the cancel grace period. A provider that finishes before the
// cancelation is issued leaves the check skipped.
func (h *Harness) checkCancel(ctx context.Context, index int, prov compute.Provider, identity, salt [32]byte, out []byte) Check {
	name := fmt.Sprintf("cancelation/%d", index)
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := make(chan struct{})
	running := *h
	running.rt = &startSignal{Runtime: h.rt, started: started}

	done := make(chan error, 1)
	go func() {
		_, err := running.invoke(cctx, index, prov, RoleSuite, identity, salt, cancelSuiteSize, cancelSuiteLabels, out)
		done <- err
	}()

	select {
	case <-started:
	case err := <-done:
		return Check{Name: name, Detail: fmt.Sprintf("call failed before reaching the provider: %v", err)}
	}

	delay := time.NewTimer(h.cancelDelay)
	select {
	case err := <-done:
		delay.Stop()
		if err != nil {
			return Check{Name: name, Detail: err.Error()}
		}
		return Check{Name: name, Skipped: true, Detail: fmt.Sprintf("completed within %s, before cancelation", h.cancelDelay)}
	case <-delay.C:
	}
	cancel()

	grace := time.NewTimer(h.cancelGrace)
	defer grace.Stop()
	select {
	case err := <-done:
		switch {
		case errors.Is(err, context.Canceled):
			return Check{Name: name, Pass: true, Detail: "canceled"}
		case err == nil:
			return Check{Name: name, Detail: "completed the job after cancelation"}
		default:
			return Check{Name: name, Detail: err.Error()}
		}
	case <-grace.C:
		return Check{Name: name, Detail: fmt.Sprintf("did not return within %s of cancelation", h.cancelGrace)}
	}
}

// startSignal closes started when the first labeling call reaches the
// wrapped runtime.
type startSignal struct {
	compute.Runtime
	started chan struct{}
	once    sync.Once
}

func (s *startSignal) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	s.once.Do(func() { close(s.started) })
	return s.Runtime.ComputeLabels(ctx, id, job)
}

func (h *Harness) checkDeterminism(ctx context.Context, index int, prov compute.Provider) (Check, error) {
	c := Check{Name: "cpu/deterministic"}
	identity, salt, err := h.inputs()
	if err != nil {
		return c, err
	}
	var digests [2]string
	for run := range digests {
		out, err := h.buffer(64, 8)
		if err != nil {
			return c, err
		}
		m, err := h.invoke(ctx, index, prov, RoleSuite, identity, salt, 8, 64, out)
		if err != nil {
			c.Detail = err.Error()
			return c, nil
		}
		digests[run] = m.Digest
	}
	c.Pass = digests[0] == digests[1]
	if !c.Pass {
		c.Detail = fmt.Sprintf("digests %s and %s", digests[0], digests[1])
	}
	return c, nil
}

func (h *Harness) checkVectorPrefix(ctx context.Context, index int, prov compute.Provider) (Check, error) {
	c := Check{Name: "cpu/test-vector-prefix"}
	v := testvector.Default()
	count := min(unitPrefixLabels, v.LabelsCount)
	out, err := h.buffer(count, v.LabelSize)
	if err != nil {
		return c, err
	}
	if _, err := h.invoke(ctx, index, prov, RoleSuite, v.Identity, v.Salt, v.LabelSize, count, out); err != nil {
		c.Detail = err.Error()
		return c, nil
	}
	d := labels.Compare(v.Result, out, int(layout.PrefixSize(count, v.LabelSize)))
	c.Pass = d.Equal()
	if !c.Pass {
		c.Detail = fmt.Sprintf("first mismatch at offset %d", d.FirstMismatch)
	}
	return c, nil
}

func checkPackedSizes() Check {
	c := Check{Name: "layout/sizes", Pass: true}
	for size := uint32(1); size <= 256; size++ {
		for _, count := range []uint64{0, 1, 7, 8, 1000, 9 * 128 * 1024} {
			bits := count * uint64(size)
			packed := layout.PackedSize(count, size)
			aligned := layout.AlignedSize(packed)
			if packed*8 < bits || packed*8 >= bits+8 || aligned%layout.RegionAlignment != 0 ||
				aligned < packed || aligned >= packed+layout.RegionAlignment ||
				layout.PrefixSize(count, size) > packed {
				c.Pass = false
				c.Detail = fmt.Sprintf("label size %d, count %d: packed %d, aligned %d", size, count, packed, aligned)
				return c
			}
		}
	}
	return c
}

func checkPackRoundTrip() Check {
	c := Check{Name: "labels/pack", Pass: true}
	for _, width := range []uint32{1, 3, 8, 13, 64, 100, 256} {
		const n = 40
		buf := make([]byte, layout.PackedSize(n, width))
		want := make([][]byte, n)
		for i := range want {
			v := make([]byte, (width+7)/8)
			for j := range v {
				v[j] = byte(i*31 + j*7 + 1)
			}
			if rem := width % 8; rem != 0 {
				v[len(v)-1] &= byte(1<<rem) - 1
			}
			want[i] = v
			labels.Put(buf, uint64(i)*uint64(width), v, width)
		}
		for i := range want {
			got := labels.Get(buf, uint64(i), width)
			if string(got) != string(want[i]) {
				c.Pass = false
				c.Detail = fmt.Sprintf("width %d label %d: got %x, want %x", width, i, got, want[i])
				return c
			}
		}
	}
	return c
}

func checkPrefixCompare() Check {
	c := Check{Name: "labels/prefix-compare"}
	ref := make([]byte, 64)
	got := make([]byte, 64)
	got[40] = 1
	if !labels.Compare(ref, got, 40).Equal() {
		c.Detail = "difference past the prefix was reported"
		return c
	}
	d := labels.Compare(ref, got, 41)
	if d.Equal() || d.FirstMismatch != 40 || len(d.Blocks) != 1 || d.Blocks[0] != 1 {
		c.Detail = fmt.Sprintf("unexpected diff %+v", d)
		return c
	}
	c.Pass = true
	return c
}

func checkEmbeddedVector() Check {
	c := Check{Name: "testvector/embedded"}
	v := testvector.Default()
	if err := v.Validate(); err != nil {
		c.Detail = err.Error()
		return c
	}
	c.Pass = uint64(len(v.Result)) == v.Size()
	if !c.Pass {
		c.Detail = fmt.Sprintf("result holds %d bytes, want %d", len(v.Result), v.Size())
	}
	return c
}

// endSuite settles the outcome of a suite and prints a summary line. A
// suite with skipped checks and no failures was not performed in full.
func (h *Harness) endSuite(r *Result) *Result {
	passed, skipped := 0, 0
	for _, c := range r.Checks {
		switch {
		case c.Pass:
			passed++
		case c.Skipped:
			skipped++
		}
	}
	switch {
	case r.Outcome == OutcomeFail:
	case skipped > 0:
		r.Outcome = OutcomeNotPerformed
	default:
		r.Outcome = OutcomePass
	}
	if skipped > 0 {
		h.out.Printf("%s: %d/%d checks passed, %d not performed\n", r.Mode, passed, len(r.Checks), skipped)
	} else {
		h.out.Printf("%s: %d/%d checks passed\n", r.Mode, passed, len(r.Checks))
	}
	for _, c := range r.Checks {
		switch {
		case c.Pass:
		case c.Skipped:
			h.out.Printf("  NOT PERFORMED %s: %s\n", c.Name, c.Detail)
		default:
			h.out.Printf("  FAILED %s: %s\n", c.Name, c.Detail)
		}
	}
	return h.finish(r)
}

func (h *Harness) printCheck(c Check, prov compute.Provider) {
	status := "OK"
	switch {
	case c.Skipped:
		status = "NOT PERFORMED"
	case !c.Pass:
		status = "FAILED"
	}
	if c.Detail != "" {
		h.out.Printf("%s %s [%s]: %s\n", status, c.Name, prov, c.Detail)
		return
	}
	h.out.Printf("%s %s [%s]\n", status, c.Name, prov)
}
