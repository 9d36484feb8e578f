package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/postbench/internal/compute"
)

// LongRun invokes one provider Iterations times with the same inputs.
//
// Every iteration must produce the same output; a digest that differs
// from the first iteration's is recorded as a failed check. A provider
// error ends the run early.
func (h *Harness) LongRun(ctx context.Context, p Params) (*Result, error) {
	r := NewResult("long-run")
	r.Started = h.now()
	r.LabelSize = p.LabelSize
	r.LabelsCount = p.LabelsCount

	providers, err := h.providers()
	if errors.Is(err, compute.ErrNoProviders) {
		return h.noProviders(r), nil
	}
	if err != nil {
		return nil, err
	}
	r.Providers = providers

	prov, err := compute.Lookup(providers, p.ProviderID)
	if err != nil {
		return nil, err
	}
	h.out.Printf("Using provider id: %d. Label size: %d, Labels per iteration: %s. Iterations: %d\n",
		p.ProviderID, p.LabelSize, h.out.Count(p.LabelsCount), p.Iterations)
	h.out.Printf("Provider: %s\n", prov)

	identity, salt, err := h.inputs()
	if err != nil {
		return nil, err
	}
	out, err := h.buffer(p.LabelsCount, p.LabelSize)
	if err != nil {
		return nil, err
	}

	var first string
	start := h.now()
	for it := 1; it <= p.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			r.AddNote(fmt.Sprintf("interrupted before iteration %d", it))
			break
		}
		h.out.Printf("Iteration %d / %d\n", it, p.Iterations)
		clear(out)
		m, err := h.invoke(ctx, p.ProviderID, prov, RoleIteration, identity, salt, p.LabelSize, p.LabelsCount, out)
		if err != nil {
			h.out.Printf("Provider %d [%s] failed: %v\n", p.ProviderID, prov, err)
			r.AddError(err)
			break
		}
		m.Iteration = it
		r.Measurements = append(r.Measurements, m)
		h.out.Throughput("", prov.String(), m.Hashes, m.HashesPerSec)

		if it == 1 {
			first = m.Digest
			continue
		}
		if m.Digest != first {
			h.out.Printf("Iteration %d output differs from iteration 1\n", it)
			r.AddCheck(Check{
				Name:   fmt.Sprintf("iteration %d", it),
				Detail: fmt.Sprintf("digest %s, iteration 1 digest %s", m.Digest, first),
			})
		}
	}
	h.out.Printf("Total iterations running time: %s\n", h.now().Sub(start))
	return h.finish(r), nil
}
