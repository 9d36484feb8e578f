package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/layout"
)

func TestFakeRuntime_HonestProvidersAgree(t *testing.T) {
	rt := NewFakeRuntime(CPU("cpu"), GPU(compute.ClassCUDA, "gpu"))
	outs := make([][]byte, 2)
	for id := range outs {
		job := &compute.Job{LabelSize: 5, Start: 0, End: 63, Out: make([]byte, layout.PackedSize(64, 5))}
		job.Identity[3] = 9
		_, err := rt.ComputeLabels(context.Background(), compute.ID(id), job)
		require.NoError(t, err)
		outs[id] = job.Out
	}
	assert.Equal(t, outs[0], outs[1])
	assert.Len(t, rt.Calls(), 2)
}

func TestFakeRuntime_CorruptAndFail(t *testing.T) {
	boom := errors.New("boom")
	rt := NewFakeRuntime(
		FakeProvider{Class: compute.ClassCUDA, Model: "bad", Corrupt: func(out []byte) { out[0] ^= 0xff }},
		FakeProvider{Class: compute.ClassVulkan, Model: "dead", Err: boom},
	)
	job := &compute.Job{LabelSize: 8, End: 3, Out: make([]byte, 4)}
	_, err := rt.ComputeLabels(context.Background(), 0, job)
	require.NoError(t, err)
	assert.Equal(t, FakeLabel(job.Identity, job.Salt, 0)[0]^0xff, job.Out[0])

	_, err = rt.ComputeLabels(context.Background(), 1, job)
	assert.ErrorIs(t, err, boom)
}

func TestFakeRuntime_FillShort(t *testing.T) {
	rt := NewFakeRuntime(CPU("a"), CPU("b"), CPU("c"))
	rt.FillShort = 1
	_, err := compute.Enumerate(rt)
	var inc *compute.InconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, 3, inc.Expected)
	assert.Equal(t, 2, inc.Got)
}

func TestStepClock(t *testing.T) {
	c := NewStepClock(time.Second)
	a := c.Now()
	b := c.Now()
	assert.Equal(t, time.Second, b.Sub(a))
	assert.Equal(t, 2, c.Calls())
}
