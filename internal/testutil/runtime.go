package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/labels"
)

// FakeProvider scripts the behaviour of one provider in a FakeRuntime.
type FakeProvider struct {
	Class compute.Class
	Model string

	// Corrupt, if set, mutates the output after a successful computation.
	Corrupt func(out []byte)

	// Err, if set, is returned instead of computing.
	Err error
}

// Call records one ComputeLabels invocation.
type Call struct {
	ID        compute.ID
	Identity  [32]byte
	Salt      [32]byte
	LabelSize uint32
	Start     uint64
	End       uint64
}

const cancelCheckEvery = 256

// FakeRuntime is a compute.Runtime with scriptable providers.
//
// All providers compute the same cheap deterministic labeling function
// (SHA-256 of identity, index and salt), so honest fakes always agree.
// They check the context every cancelCheckEvery labels.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FakeRuntime struct {
	Providers []FakeProvider

	// FillShort makes the fill call of Enumerate return this many fewer
	// entries than the count call.
	FillShort int

	mu    sync.Mutex
	calls []Call
}

// NewFakeRuntime creates a runtime exposing the given providers.
func NewFakeRuntime(providers ...FakeProvider) *FakeRuntime {
	return &FakeRuntime{Providers: providers}
}

// CPU returns an honest CPU-class fake provider.
func CPU(model string) FakeProvider {
	return FakeProvider{Class: compute.ClassCPU, Model: model}
}

// GPU returns an honest fake provider of the given class.
func GPU(class compute.Class, model string) FakeProvider {
	return FakeProvider{Class: class, Model: model}
}

// Enumerate implements compute.Runtime.
func (r *FakeRuntime) Enumerate(dst []compute.Provider) int {
	if dst == nil {
		return len(r.Providers)
	}
	n := min(len(dst), len(r.Providers)-r.FillShort)
	for i := 0; i < n; i++ {
		dst[i] = compute.Provider{
			ID:    compute.ID(i),
			Class: r.Providers[i].Class,
			Model: r.Providers[i].Model,
		}
	}
	return max(n, 0)
}

// ComputeLabels implements compute.Runtime.
func (r *FakeRuntime) ComputeLabels(ctx context.Context, id compute.ID, job *compute.Job) (compute.Stats, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{
		ID:        id,
		Identity:  job.Identity,
		Salt:      job.Salt,
		LabelSize: job.LabelSize,
		Start:     job.Start,
		End:       job.End,
	})
	p := r.Providers[id]
	r.mu.Unlock()

	if p.Err != nil {
		return compute.Stats{}, p.Err
	}
	for i := job.Start; i <= job.End; i++ {
		if (i-job.Start)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return compute.Stats{}, err
			}
		}
		labels.Put(job.Out, (i-job.Start)*uint64(job.LabelSize), FakeLabel(job.Identity, job.Salt, i), job.LabelSize)
	}
	if p.Corrupt != nil {
		p.Corrupt(job.Out)
	}
	return compute.Stats{Hashes: job.Count()}, nil
}

// Calls returns a copy of the recorded invocations.
func (r *FakeRuntime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// FakeLabel is the labeling function shared by all fake providers.
func FakeLabel(identity, salt [32]byte, index uint64) []byte {
	h := sha256.New()
	h.Write(identity[:])
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	h.Write(idx[:])
	h.Write(salt[:])
	return h.Sum(nil)
}
