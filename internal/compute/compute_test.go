package compute_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/layout"
	"github.com/roach88/postbench/internal/testutil"
)

func TestClass_String(t *testing.T) {
	assert.Equal(t, "UNSPECIFIED", compute.ClassUnspecified.String())
	assert.Equal(t, "CPU", compute.ClassCPU.String())
	assert.Equal(t, "CUDA", compute.ClassCUDA.String())
	assert.Equal(t, "VULKAN", compute.ClassVulkan.String())
	assert.Equal(t, "INVALID", compute.Class(42).String())
}

func TestClass_TextRoundTrip(t *testing.T) {
	for _, c := range []compute.Class{compute.ClassUnspecified, compute.ClassCPU, compute.ClassCUDA, compute.ClassVulkan} {
		text, err := c.MarshalText()
		require.NoError(t, err)
		var back compute.Class
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, c, back)
	}
	_, err := compute.Class(9).MarshalText()
	assert.Error(t, err)
}

func TestClass_IsCPU(t *testing.T) {
	assert.True(t, compute.ClassCPU.IsCPU())
	assert.False(t, compute.ClassCUDA.IsCPU())
	assert.False(t, compute.ClassVulkan.IsCPU())
	assert.False(t, compute.ClassUnspecified.IsCPU())
	assert.False(t, compute.Class(9).IsCPU())
}

func TestEnumerate_NoProviders(t *testing.T) {
	_, err := compute.Enumerate(testutil.NewFakeRuntime())
	assert.ErrorIs(t, err, compute.ErrNoProviders)
}

func TestEnumerate_Fills(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), testutil.GPU(compute.ClassVulkan, "vk"))
	providers, err := compute.Enumerate(rt)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "[VULKAN] vk", providers[1].String())
}

func TestEnumerate_RejectsInvalidClass(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"), testutil.GPU(compute.Class(7), "odd"))
	_, err := compute.Enumerate(rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider 1 reports invalid class 7")
}

func TestLookup_OutOfBounds(t *testing.T) {
	providers := make([]compute.Provider, 3)
	_, err := compute.Lookup(providers, 5)
	require.Error(t, err)
	assert.True(t, compute.IsOutOfBounds(err))
	assert.Contains(t, err.Error(), "out of bounds provider id 5")

	_, err = compute.Lookup(providers, -1)
	assert.True(t, compute.IsOutOfBounds(err))

	_, err = compute.Lookup(providers, 2)
	assert.NoError(t, err)
}

func TestFirstOfClass(t *testing.T) {
	providers := []compute.Provider{
		{Class: compute.ClassCUDA},
		{Class: compute.ClassCPU},
		{Class: compute.ClassCPU},
	}
	assert.Equal(t, 1, compute.FirstOfClass(providers, compute.Class.IsCPU))
	assert.Equal(t, -1, compute.FirstOfClass(providers[:1], compute.Class.IsCPU))
}

func TestInvoke_MeasuresElapsedAndDerivesRate(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.GPU(compute.ClassCUDA, "gpu"))
	clock := testutil.NewStepClock(2 * time.Second)
	job := &compute.Job{LabelSize: 8, End: 99, Out: make([]byte, layout.PackedSize(100, 8))}

	stats, err := compute.Invoke(context.Background(), rt, compute.Provider{ID: 0}, job, clock.Now)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stats.Hashes)
	assert.Equal(t, 2*time.Second, stats.Elapsed)
	assert.Equal(t, uint64(50), stats.HashesPerSec)
}

func TestInvoke_RejectsShortBuffer(t *testing.T) {
	rt := testutil.NewFakeRuntime(testutil.CPU("cpu"))
	job := &compute.Job{LabelSize: 8, End: 99, Out: make([]byte, 99)}
	_, err := compute.Invoke(context.Background(), rt, compute.Provider{}, job, nil)
	require.Error(t, err)
	assert.Empty(t, rt.Calls())
}

func TestInvoke_PropagatesProviderError(t *testing.T) {
	boom := errors.New("device lost")
	rt := testutil.NewFakeRuntime(testutil.FakeProvider{Class: compute.ClassCUDA, Err: boom})
	job := &compute.Job{LabelSize: 1, End: 7, Out: make([]byte, 1)}
	_, err := compute.Invoke(context.Background(), rt, compute.Provider{}, job, nil)
	assert.ErrorIs(t, err, boom)
}

func TestCombine_ReassignsIDsAndRoutes(t *testing.T) {
	a := testutil.NewFakeRuntime(testutil.CPU("a0"))
	empty := testutil.NewFakeRuntime()
	b := testutil.NewFakeRuntime(testutil.GPU(compute.ClassCUDA, "b0"), testutil.GPU(compute.ClassVulkan, "b1"))
	rt := compute.Combine(a, empty, b)

	providers, err := compute.Enumerate(rt)
	require.NoError(t, err)
	require.Len(t, providers, 3)
	for i, p := range providers {
		assert.Equal(t, compute.ID(i), p.ID)
	}
	assert.Equal(t, "b1", providers[2].Model)

	job := &compute.Job{LabelSize: 8, End: 0, Out: make([]byte, 1)}
	_, err = rt.ComputeLabels(context.Background(), 2, job)
	require.NoError(t, err)
	require.Len(t, b.Calls(), 1)
	assert.Equal(t, compute.ID(1), b.Calls()[0].ID)
	assert.Empty(t, a.Calls())

	_, err = rt.ComputeLabels(context.Background(), 7, job)
	assert.Error(t, err)
}
