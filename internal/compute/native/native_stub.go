//go:build !gpupost || !cgo

package native

import (
	"context"
	"errors"

	"github.com/roach88/postbench/internal/compute"
)

// ErrNotCompiled is returned by ComputeLabels when the binding is absent.
var ErrNotCompiled = errors.New("native providers not compiled in (build with -tags gpupost)")

// Runtime reports no providers.
type Runtime struct{}

// New returns the stub runtime.
func New() *Runtime {
	return &Runtime{}
}

// Available reports whether the binding was compiled in.
func Available() bool {
	return false
}

// Enumerate implements compute.Runtime.
func (r *Runtime) Enumerate(dst []compute.Provider) int {
	return 0
}

// ComputeLabels implements compute.Runtime.
func (r *Runtime) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	return compute.Stats{}, ErrNotCompiled
}
