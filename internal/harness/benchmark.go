package harness

import (
	"context"
	"errors"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/report"
)

// Benchmark times one labeling call per non-CPU provider. Outputs are
// not checked.
func (h *Harness) Benchmark(ctx context.Context, p Params) (*Result, error) {
	r := NewResult("benchmark")
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
	out, err := h.buffer(p.LabelsCount, p.LabelSize)
	if err != nil {
		return nil, err
	}
	h.out.Printf("Benchmark: Label size: %d, count %s, buffer %s\n",
		p.LabelSize, h.out.Count(p.LabelsCount), report.Bytes(uint64(len(out))))

	ran := 0
	for i, prov := range providers {
		if prov.Class.IsCPU() {
			continue
		}
		ran++
		m, err := h.invoke(ctx, i, prov, RoleBenchmark, identity, salt, p.LabelSize, p.LabelsCount, out)
		if err != nil {
			h.out.Printf("Provider %d [%s] failed: %v\n", i, prov, err)
			r.AddError(err)
			continue
		}
		r.Measurements = append(r.Measurements, m)
		h.out.Throughput("", prov.String(), m.Hashes, m.HashesPerSec)
	}
	if ran == 0 {
		h.out.Println("There are no non-CPU providers to benchmark.")
		r.AddNote("no non-CPU providers")
	}
	return h.finish(r), nil
}
