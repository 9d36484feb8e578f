// Package native exposes the providers of the gpu-post C library.
//
// The binding is compiled only with the gpupost build tag and cgo:
//
//	CGO_LDFLAGS="-L/path/to/gpu-post/lib -lgpu-setup" go build -tags gpupost ./cmd/postbench
//
// Without the tag, New returns a runtime with no providers.
package native
