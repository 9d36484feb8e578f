package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/compute/cpu"
	"github.com/roach88/postbench/internal/testutil"
	"github.com/roach88/postbench/internal/testvector"
)

// blockingRuntime honors a context canceled before the call starts, then
// ignores cancelation until released.
type blockingRuntime struct {
	release chan struct{}
}

func (b *blockingRuntime) Enumerate(dst []compute.Provider) int {
	if dst != nil {
		dst[0] = compute.Provider{ID: 0, Class: compute.ClassCUDA, Model: "stuck"}
	}
	return 1
}

func (b *blockingRuntime) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	if err := ctx.Err(); err != nil {
		return compute.Stats{}, err
	}
	<-b.release
	return compute.Stats{Hashes: job.Count()}, nil
}

// tailCorruptingRuntime flips the first output bit of every call that does
// not start at label 0.
type tailCorruptingRuntime struct {
	*testutil.FakeRuntime
}

func (r *tailCorruptingRuntime) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	stats, err := r.FakeRuntime.ComputeLabels(ctx, id, job)
	if err == nil && job.Start > 0 {
		job.Out[0] ^= 1
	}
	return stats, err
}

func checkNames(r *Result, failedOnly bool) []string {
	var names []string
	for _, c := range r.Checks {
		if failedOnly && (c.Pass || c.Skipped) {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

func TestUnitTests_WithoutCPUProvider(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.GPU(compute.ClassCUDA, "gpu"))
	h, out := newTestHarness(rt)

	r, err := h.UnitTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome)
	assert.Equal(t, []string{"layout/sizes", "labels/pack", "labels/prefix-compare", "testvector/embedded"}, checkNames(r, false))
	assert.Contains(t, r.Notes, "no CPU provider, provider checks skipped")
	assert.Contains(t, out.String(), "unit-tests: 4/4 checks passed\n")
}

func TestUnitTests_ScryptCPUProvider(t *testing.T) {
	if testing.Short() {
		t.Skip("computes scrypt labels")
	}
	h, _ := newTestHarness(cpu.New())

	r, err := h.UnitTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome, "failed checks: %v", checkNames(r, true))
	assert.Len(t, r.Checks, 6)
}

func TestCheckVector_EmbeddedFixtureWithScryptCPU(t *testing.T) {
	if testing.Short() {
		t.Skip("computes 65536 scrypt labels")
	}
	h, _ := newTestHarness(cpu.New())

	r, err := h.CheckVector(context.Background(), testvector.Default(), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome)
}

func TestIntegrationLength_HonestProviders(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), testutil.GPU(compute.ClassCUDA, "gpu"))
	h, out := newTestHarness(rt)

	r, err := h.IntegrationLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome, "failed checks: %v", checkNames(r, true))
	// One cross check plus one split check per provider for every size.
	assert.Len(t, r.Checks, len(lengthSuiteSizes)*3)
	assert.Len(t, r.Comparisons, len(lengthSuiteSizes))
	assert.Contains(t, out.String(), "OK result for label size 256 from provider 1 [CUDA] gpu\n")
}

func TestIntegrationLength_DetectsOffsetBug(t *testing.T) {
	// Corrupting the first output byte of every call leaves a single call
	// wrong in one place but the stitched halves wrong in two.
	gpu := testutil.GPU(compute.ClassCUDA, "gpu")
	gpu.Corrupt = flipByte(0)
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), gpu)
	h, out := newTestHarness(rt)

	r, err := h.IntegrationLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFail, r.Outcome)

	failed := checkNames(r, true)
	assert.Contains(t, failed, "length/8/cross")
	assert.Contains(t, failed, "length/8/split/1")
	assert.NotContains(t, failed, "length/8/split/0")
	assert.Contains(t, out.String(), "FAILED length/8/split/1: split at label 256")
}

func TestIntegrationLabels_HonestProviders(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), testutil.GPU(compute.ClassVulkan, "vk"))
	h, _ := newTestHarness(rt)

	r, err := h.IntegrationLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome, "failed checks: %v", checkNames(r, true))
	// Count 1 has nothing to split, so it only gets the cross check.
	assert.Len(t, r.Checks, len(labelsSuiteSizes)*(len(labelsSuiteCounts)*3-2))
	for _, c := range r.Checks {
		assert.False(t, strings.HasPrefix(c.Name, "labels/1/1/split/"), c.Name)
	}
}

func TestIntegrationLabels_WithoutReference(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.GPU(compute.ClassVulkan, "vk"))
	h, _ := newTestHarness(rt)

	r, err := h.IntegrationLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPerformed, r.Outcome)
	assert.False(t, r.Passed())
	for _, c := range r.Checks {
		if strings.HasSuffix(c.Name, "/cross") {
			assert.True(t, c.Skipped, c.Name)
			assert.False(t, c.Pass, c.Name)
			assert.Equal(t, "no reference provider", c.Detail)
		}
	}
}

func TestIntegrationLength_OnlyCPUProviderIsNotPerformed(t *testing.T) {
	h, out := newTestHarness(testutil.NewFakeRuntime(testutil.CPU("cpu")))

	r, err := h.IntegrationLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPerformed, r.Outcome)
	assert.False(t, r.Passed())
	assert.Empty(t, r.Comparisons)
	assert.Empty(t, checkNames(r, true))

	n := len(lengthSuiteSizes)
	assert.Contains(t, out.String(), fmt.Sprintf("integration-test-length: %d/%d checks passed, %d not performed\n", n, 2*n, n))
	assert.Contains(t, out.String(), "  NOT PERFORMED length/1/cross: no providers to compare against the reference\n")
}

func TestCheckSplit_DetectsTailCorruptionInPartialByte(t *testing.T) {
	rt := &tailCorruptingRuntime{FakeRuntime: testutil.NewFakeRuntime(testutil.GPU(compute.ClassCUDA, "gpu"))}
	h, _ := newTestHarness(rt)
	prov := compute.Provider{ID: 0, Class: compute.ClassCUDA, Model: "gpu"}
	var identity, salt [32]byte

	for count := uint64(2); count <= 9; count++ {
		c, err := h.checkSplit(context.Background(), 0, prov, identity, salt, 1, count)
		require.NoError(t, err)
		assert.False(t, c.Pass, "count %d", count)
	}

	honest := testutil.NewFakeRuntime(testutil.GPU(compute.ClassCUDA, "gpu"))
	h, _ = newTestHarness(honest)
	for count := uint64(2); count <= 9; count++ {
		c, err := h.checkSplit(context.Background(), 0, prov, identity, salt, 1, count)
		require.NoError(t, err)
		assert.True(t, c.Pass, "count %d: %s", count, c.Detail)
	}
}

func TestIntegrationConcurrency(t *testing.T) {
	rt := testutil.NewFakeRuntime(
		testutil.CPU("cpu"),
		testutil.GPU(compute.ClassCUDA, "a"),
		testutil.GPU(compute.ClassVulkan, "b"),
	)
	h, out := newTestHarness(rt)

	r, err := h.IntegrationConcurrency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome)
	assert.Equal(t, []string{"concurrency/0", "concurrency/1", "concurrency/2"}, checkNames(r, false))
	assert.Len(t, rt.Calls(), 6)
	assert.Contains(t, out.String(), "Running 3 providers concurrently\n")
}

func TestIntegrationCancelation_HonoredByFakes(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), testutil.GPU(compute.ClassCUDA, "gpu"))
	h, _ := newTestHarness(rt, WithCancelDelay(time.Millisecond))

	r, err := h.IntegrationCancelation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome)
	require.Len(t, r.Checks, 2)
	for _, c := range r.Checks {
		assert.Equal(t, "canceled", c.Detail)
	}
}

func TestIntegrationCancelation_CompletedBeforeCancelIsNotPerformed(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.GPU(compute.ClassCUDA, "gpu"))
	h, out := newTestHarness(rt, WithCancelDelay(time.Hour))

	r, err := h.IntegrationCancelation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPerformed, r.Outcome)
	require.Len(t, r.Checks, 1)
	assert.True(t, r.Checks[0].Skipped)
	assert.Contains(t, out.String(), "NOT PERFORMED cancelation/0")
}

// The provider sees a live context when it starts, so only a cancelation
// issued mid-run can be ignored.
func TestIntegrationCancelation_ProviderIgnoringMidRunCancelationFails(t *testing.T) {
	rt := &blockingRuntime{release: make(chan struct{})}
	t.Cleanup(func() { close(rt.release) })
	h, _ := newTestHarness(rt, WithCancelGrace(10*time.Millisecond), WithCancelDelay(time.Millisecond))

	r, err := h.IntegrationCancelation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFail, r.Outcome)
	require.Len(t, r.Checks, 1)
	assert.Equal(t, "did not return within 10ms of cancelation", r.Checks[0].Detail)
}

func TestIntegrationTests_NoProviders(t *testing.T) {
	h, _ := newTestHarness(testutil.NewFakeRuntime())

	r, err := h.IntegrationTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "integration-tests", r.Mode)
	assert.Equal(t, OutcomeNoProviders, r.Outcome)
	assert.False(t, r.Passed())
}

func TestIntegrationTests_MergesSuites(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), testutil.GPU(compute.ClassCUDA, "gpu"))
	h, _ := newTestHarness(rt, WithCancelDelay(time.Millisecond))

	r, err := h.IntegrationTests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome, "failed checks: %v", checkNames(r, true))

	prefixes := map[string]bool{}
	for _, c := range r.Checks {
		prefixes[strings.SplitN(c.Name, "/", 2)[0]] = true
	}
	assert.Equal(t, map[string]bool{"length": true, "labels": true, "concurrency": true, "cancelation": true}, prefixes)
}
