//go:build gpupost && cgo

package native

/*
#cgo LDFLAGS: -lgpu-setup
#include <stdint.h>
#include <stdlib.h>
#include "api.h"
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/roach88/postbench/internal/compute"
)

// Runtime calls into the gpu-post library.
type Runtime struct{}

// New returns the native runtime.
func New() *Runtime {
	return &Runtime{}
}

// Available reports whether the binding was compiled in.
func Available() bool {
	return true
}

// Enumerate implements compute.Runtime.
func (r *Runtime) Enumerate(dst []compute.Provider) int {
	if dst == nil {
		return int(C.spacemesh_api_get_providers(nil, 0))
	}
	if len(dst) == 0 {
		return 0
	}
	raw := make([]C.PostComputeProvider, len(dst))
	n := int(C.spacemesh_api_get_providers(&raw[0], C.int(len(raw))))
	for i := 0; i < n && i < len(dst); i++ {
		dst[i] = compute.Provider{
			ID:    compute.ID(raw[i].id),
			Class: classOf(raw[i].compute_api),
			Model: C.GoString(&raw[i].model[0]),
		}
	}
	return n
}

// ComputeLabels implements compute.Runtime. The library call cannot be
// interrupted; ctx is only checked before it starts.
func (r *Runtime) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	if err := ctx.Err(); err != nil {
		return compute.Stats{}, err
	}
	if len(job.Out) == 0 {
		return compute.Stats{}, fmt.Errorf("native: empty output buffer")
	}
	var hashes, rate C.uint64_t
	rc := C.scryptPositions(
		C.uint32_t(id),
		(*C.uint8_t)(unsafe.Pointer(&job.Identity[0])),
		C.uint64_t(job.Start),
		C.uint64_t(job.End),
		C.uint32_t(job.LabelSize),
		(*C.uint8_t)(unsafe.Pointer(&job.Salt[0])),
		C.uint32_t(job.Options),
		(*C.uint8_t)(unsafe.Pointer(&job.Out[0])),
		C.uint32_t(job.WorkFactor.N),
		C.uint32_t(job.WorkFactor.R),
		C.uint32_t(job.WorkFactor.P),
		&hashes,
		&rate,
	)
	if rc != 0 {
		return compute.Stats{}, fmt.Errorf("native: scryptPositions returned %d", int(rc))
	}
	return compute.Stats{Hashes: uint64(hashes), HashesPerSec: uint64(rate)}, nil
}

func classOf(api C.ComputeApiClass) compute.Class {
	switch api {
	case C.COMPUTE_API_CLASS_CPU:
		return compute.ClassCPU
	case C.COMPUTE_API_CLASS_CUDA:
		return compute.ClassCUDA
	case C.COMPUTE_API_CLASS_VULKAN:
		return compute.ClassVulkan
	default:
		return compute.ClassUnspecified
	}
}
