package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/layout"
	"github.com/roach88/postbench/internal/report"
)

// CrossValidate computes labels with every non-CPU provider and compares
// each output byte for byte against the reference.
//
// Mismatches and provider failures are recorded in the result and do not
// stop the remaining providers. A reference provider index that does not
// exist falls back to the first CPU provider.
func (h *Harness) CrossValidate(ctx context.Context, p Params) (*Result, error) {
	r := NewResult("test")
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

	identity, salt, err := h.inputs()
	if err != nil {
		return nil, err
	}
	if err := h.validate(ctx, r, providers, p, identity, salt); err != nil {
		return nil, err
	}
	return h.finish(r), nil
}

// validate runs one cross-provider comparison into r. Only fatal errors
// are returned.
func (h *Harness) validate(ctx context.Context, r *Result, providers []compute.Provider, p Params, identity, salt [32]byte) error {
	ref, haveRef := ResolveReference(providers, p.ReferenceProvider, p.LabelsCount, p.ReferenceClamp)
	if ref.Fallback {
		h.out.Printf("Reference provider %d does not exist (%d providers), using the first CPU provider.\n",
			p.ReferenceProvider, len(providers))
		r.AddNote(fmt.Sprintf("reference provider %d does not exist", p.ReferenceProvider))
	}
	arena, err := layout.NewArena(h.alloc, len(providers), p.LabelsCount, p.LabelSize)
	if err != nil {
		return err
	}
	h.out.Printf("Test: Label size: %d, count %s, buffer %s\n",
		p.LabelSize, h.out.Count(p.LabelsCount), report.Bytes(uint64(arena.Len())))

	var refOut []byte
	if haveRef {
		r.Reference = &ref
		refOut = arena.Region(ref.Index)
		m, err := h.invoke(ctx, ref.Index, ref.Provider, RoleReference, identity, salt, p.LabelSize, ref.LabelsCount, refOut)
		if err != nil {
			h.out.Printf("Reference provider %d [%s] failed: %v\n", ref.Index, ref.Provider, err)
			r.AddError(err)
			r.AddNote("reference computation failed, comparisons skipped")
			haveRef = false
		} else {
			r.Measurements = append(r.Measurements, m)
			h.out.Throughput("", ref.Provider.String(), m.Hashes, m.HashesPerSec)
		}
	}

	n := layout.PrefixSize(min(ref.LabelsCount, p.LabelsCount), p.LabelSize)
	against := fmt.Sprintf("provider %d", ref.Index)
	candidates := 0
	for i, prov := range providers {
		if prov.Class.IsCPU() || (r.Reference != nil && i == ref.Index) {
			continue
		}
		candidates++
		out := arena.Region(i)
		m, err := h.invoke(ctx, i, prov, RoleCandidate, identity, salt, p.LabelSize, p.LabelsCount, out)
		if err != nil {
			h.out.Printf("Provider %d [%s] failed: %v\n", i, prov, err)
			r.AddError(err)
			continue
		}
		r.Measurements = append(r.Measurements, m)
		h.out.Throughput("", prov.String(), m.Hashes, m.HashesPerSec)
		if !haveRef {
			continue
		}

		c := compare(i, prov, against, p.LabelSize, refOut, out, n)
		r.AddComparison(c)
		if c.Match() {
			h.out.Printf("OK result for label size %d from provider %d [%s]\n", p.LabelSize, i, prov)
			continue
		}
		h.out.Printf("WRONG result for label size %d from provider %d [%s]\n", p.LabelSize, i, prov)
		if p.Print {
			h.out.Blocks(refOut, out, int(n))
		}
	}

	switch {
	case r.Outcome == OutcomeFail:
	case r.Reference == nil:
		h.out.Println("Validation not performed: no CPU provider and no reference provider given.")
		r.AddNote("no reference provider")
		r.Outcome = OutcomeNotPerformed
	case candidates == 0:
		h.out.Println("Validation not performed: no non-CPU providers to compare.")
		r.AddNote("no providers to compare against the reference")
		r.Outcome = OutcomeNotPerformed
	default:
		r.Outcome = OutcomePass
	}
	return nil
}
