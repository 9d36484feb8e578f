package harness

import (
	"errors"

	"github.com/roach88/postbench/internal/compute"
)

// List prints every provider as "<index>: [<CLASS>] <model>".
func (h *Harness) List() (*Result, error) {
	r := NewResult("list")
	r.Started = h.now()

	providers, err := h.providers()
	if errors.Is(err, compute.ErrNoProviders) {
		return h.noProviders(r), nil
	}
	if err != nil {
		return nil, err
	}
	r.Providers = providers
	for i, p := range providers {
		h.out.Printf("%d: %s\n", i, p)
	}
	return h.finish(r), nil
}
