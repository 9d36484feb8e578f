//go:build !gpupost || !cgo

package native

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/postbench/internal/compute"
)

func TestStub_NoProviders(t *testing.T) {
	rt := New()
	assert.False(t, Available())
	assert.Equal(t, 0, rt.Enumerate(nil))

	_, err := compute.Enumerate(rt)
	assert.ErrorIs(t, err, compute.ErrNoProviders)

	_, err = rt.ComputeLabels(context.Background(), 0, &compute.Job{})
	assert.ErrorIs(t, err, ErrNotCompiled)
}
