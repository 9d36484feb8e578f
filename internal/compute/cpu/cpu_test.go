package cpu

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/layout"
)

func zeroJob(labelSize uint32, start, end uint64) *compute.Job {
	return &compute.Job{
		LabelSize:  labelSize,
		Start:      start,
		End:        end,
		WorkFactor: compute.DefaultWorkFactor,
		Out:        make([]byte, layout.PackedSize(end-start+1, labelSize)),
	}
}

func TestLabel_KnownValue(t *testing.T) {
	var zero [32]byte
	got, err := Label(zero, zero, 0, compute.DefaultWorkFactor)
	require.NoError(t, err)
	assert.Equal(t, "b0aca42f5909df041be687db21be2ca219f81696f08b00e4f11cbf495ce9b339", hex.EncodeToString(got))
}

func TestComputeLabels_ByteLabels(t *testing.T) {
	rt := New(WithWorkers(3))
	job := zeroJob(8, 0, 3)

	stats, err := rt.ComputeLabels(context.Background(), 0, job)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stats.Hashes)
	assert.Equal(t, []byte{0xb0, 0x34, 0xf5, 0x99}, job.Out)
}

func TestComputeLabels_OneBitLabels(t *testing.T) {
	rt := New(WithWorkers(2))
	job := zeroJob(1, 0, 7)

	_, err := rt.ComputeLabels(context.Background(), 0, job)
	require.NoError(t, err)
	// Low bits of b0 34 f5 99 are 0 0 1 1.
	assert.Equal(t, byte(0x0c), job.Out[0]&0x0f)
}

func TestComputeLabels_OffsetRangeMatchesFullRange(t *testing.T) {
	rt := New(WithWorkers(4))
	full := zeroJob(16, 0, 9)
	_, err := rt.ComputeLabels(context.Background(), 0, full)
	require.NoError(t, err)

	tail := zeroJob(16, 4, 9)
	_, err = rt.ComputeLabels(context.Background(), 0, tail)
	require.NoError(t, err)

	assert.Equal(t, full.Out[8:], tail.Out)
}

func TestComputeLabels_DeterministicAcrossWorkerCounts(t *testing.T) {
	const size = 7
	var outs [][]byte
	for _, workers := range []int{1, 2, 5} {
		job := zeroJob(size, 0, 99)
		job.Identity[0] = 0x42
		job.Salt[31] = 0x17
		_, err := New(WithWorkers(workers)).ComputeLabels(context.Background(), 0, job)
		require.NoError(t, err)
		outs = append(outs, job.Out)
	}
	assert.Equal(t, outs[0], outs[1])
	assert.Equal(t, outs[0], outs[2])
}

func TestComputeLabels_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ComputeLabels(ctx, 0, zeroJob(8, 0, 1023))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestComputeLabels_CanceledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := New(WithWorkers(2)).ComputeLabels(ctx, 0, zeroJob(8, 0, 1<<16-1))
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("ComputeLabels did not return after cancelation")
	}
}

func TestComputeLabels_UnknownID(t *testing.T) {
	_, err := New().ComputeLabels(context.Background(), 1, zeroJob(8, 0, 0))
	require.Error(t, err)
}

func TestEnumerate(t *testing.T) {
	rt := New()
	require.Equal(t, 1, rt.Enumerate(nil))

	dst := make([]compute.Provider, 1)
	require.Equal(t, 1, rt.Enumerate(dst))
	assert.Equal(t, compute.ClassCPU, dst[0].Class)
	assert.Equal(t, Model, dst[0].Model)
}

func TestShards_ByteAligned(t *testing.T) {
	cases := []struct {
		count   uint64
		size    uint32
		workers int
	}{
		{100, 1, 3},
		{100, 3, 7},
		{17, 12, 4},
		{5, 256, 16},
		{1, 1, 8},
	}
	for _, c := range cases {
		parts := shards(c.count, c.size, c.workers)
		require.NotEmpty(t, parts)
		var next uint64
		for _, s := range parts {
			assert.Equal(t, next, s.from)
			assert.Zero(t, s.from*uint64(c.size)%8, "count=%d size=%d", c.count, c.size)
			next = s.to
		}
		assert.Equal(t, c.count, next)
		assert.LessOrEqual(t, len(parts), c.workers)
	}
}
