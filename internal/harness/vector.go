package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/testvector"
)

// CheckVector computes v's labels with the first CPU provider and compares
// the full packed output against the fixture.
func (h *Harness) CheckVector(ctx context.Context, v *testvector.Vector, print bool) (*Result, error) {
	r := NewResult("test-vector-check")
	r.Started = h.now()
	r.LabelSize = v.LabelSize
	r.LabelsCount = v.LabelsCount

	h.out.Println("Check test vector...")
	idx, providers, err := h.cpuProvider(r)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return r, nil
	}
	prov := providers[idx]

	out, err := h.buffer(v.LabelsCount, v.LabelSize)
	if err != nil {
		return nil, err
	}
	m, err := h.invoke(ctx, idx, prov, RoleVector, v.Identity, v.Salt, v.LabelSize, v.LabelsCount, out)
	if err != nil {
		h.out.Printf("Provider %d [%s] failed: %v\n", idx, prov, err)
		r.AddError(err)
		return h.finish(r), nil
	}
	r.Measurements = append(r.Measurements, m)
	h.out.Throughput("", prov.String(), m.Hashes, m.HashesPerSec)

	c := compare(idx, prov, "test vector "+v.Name, v.LabelSize, v.Result, out, v.Size())
	r.AddComparison(c)
	if c.Match() {
		h.out.Printf("Test vector %s: OK\n", v.Name)
		r.Outcome = OutcomePass
		return h.finish(r), nil
	}
	h.out.Printf("WRONG test vector %s result from provider %d [%s]\n", v.Name, idx, prov)
	if print {
		h.out.Blocks(v.Result, out, int(v.Size()))
	}
	return h.finish(r), nil
}

// CreateVector computes the default fixture inputs (all-zero identity and
// salt, DefaultLabelsCount labels of DefaultLabelSize bits) with the first
// CPU provider, prints the packed output as a byte listing and returns it
// as a Vector. The Vector is nil when no CPU provider is available.
func (h *Harness) CreateVector(ctx context.Context) (*Result, *testvector.Vector, error) {
	r := NewResult("test-vector-create")
	r.Started = h.now()
	r.LabelSize = testvector.DefaultLabelSize
	r.LabelsCount = testvector.DefaultLabelsCount

	h.out.Println("Create test vector...")
	idx, providers, err := h.cpuProvider(r)
	if err != nil {
		return nil, nil, err
	}
	if idx < 0 {
		return r, nil, nil
	}
	prov := providers[idx]

	var identity, salt [32]byte
	out, err := h.buffer(testvector.DefaultLabelsCount, testvector.DefaultLabelSize)
	if err != nil {
		return nil, nil, err
	}
	m, err := h.invoke(ctx, idx, prov, RoleVector, identity, salt, testvector.DefaultLabelSize, testvector.DefaultLabelsCount, out)
	if err != nil {
		h.out.Printf("Provider %d [%s] failed: %v\n", idx, prov, err)
		r.AddError(err)
		return h.finish(r), nil, nil
	}
	r.Measurements = append(r.Measurements, m)
	if err := testvector.WriteListing(h.out.Writer(), out); err != nil {
		return nil, nil, fmt.Errorf("write listing: %w", err)
	}

	v := &testvector.Vector{
		Name:        fmt.Sprintf("scrypt-%dbit-%dk", testvector.DefaultLabelSize, testvector.DefaultLabelsCount/1024),
		Description: "generated by " + prov.String(),
		Identity:    identity,
		Salt:        salt,
		LabelSize:   testvector.DefaultLabelSize,
		LabelsCount: testvector.DefaultLabelsCount,
		Result:      out,
	}
	return h.finish(r), v, nil
}

// cpuProvider enumerates and picks the first CPU provider. A missing
// provider is reported on r and signaled by a negative index.
func (h *Harness) cpuProvider(r *Result) (int, []compute.Provider, error) {
	providers, err := h.providers()
	if errors.Is(err, compute.ErrNoProviders) {
		h.noProviders(r)
		return -1, nil, nil
	}
	if err != nil {
		return -1, nil, err
	}
	r.Providers = providers

	idx := compute.FirstOfClass(providers, compute.Class.IsCPU)
	if idx < 0 {
		h.out.Println("There is no CPU provider available.")
		r.Outcome = OutcomeNoProviders
		r.AddNote("no CPU provider")
		h.finish(r)
	}
	return idx, providers, nil
}
