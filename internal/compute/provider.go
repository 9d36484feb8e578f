package compute

import (
	"context"
	"fmt"
	"time"
)

// ID identifies a provider within one enumeration. IDs are not stable
// across enumerations.
type ID uint32

// Provider describes one compute provider. Providers are read-only once
// enumerated.
type Provider struct {
	ID    ID     `json:"id"`
	Class Class  `json:"class"`
	Model string `json:"model"`
}

// String formats the provider the way listings print it.
func (p Provider) String() string {
	return fmt.Sprintf("[%s] %s", p.Class, p.Model)
}

// WorkFactor holds the labeling function's cost parameters.
type WorkFactor struct {
	N uint32 `json:"n"`
	R uint32 `json:"r"`
	P uint32 `json:"p"`
}

// DefaultWorkFactor is the fixed cost triple every harness job uses.
var DefaultWorkFactor = WorkFactor{N: 512, R: 1, P: 1}

// Job is the input of one labeling call. Out receives labels for indexes
// [Start, End] packed from bit 0; it must hold at least
// layout.PackedSize(End-Start+1, LabelSize) bytes.
type Job struct {
	Identity  [32]byte
	Salt      [32]byte
	LabelSize uint32
	Start     uint64
	End       uint64

	// Options is passed through to the provider untouched. The harness
	// always sends zero.
	Options uint32

	WorkFactor WorkFactor
	Out        []byte
}

// Count returns the number of labels the job covers.
func (j *Job) Count() uint64 {
	return j.End - j.Start + 1
}

// Stats are the counters a provider reports for one call.
type Stats struct {
	// Hashes is the number of labels computed.
	Hashes uint64 `json:"hashes"`

	// HashesPerSec is the provider's own throughput figure. It is
	// informational and not required to be exact.
	HashesPerSec uint64 `json:"hashes_per_sec"`

	// Elapsed is the wall clock duration measured by Invoke.
	Elapsed time.Duration `json:"elapsed"`
}

// Runtime is the provider discovery and execution boundary.
type Runtime interface {
	// Enumerate returns the provider count when dst is nil, otherwise
	// fills dst and returns the number of providers written.
	Enumerate(dst []Provider) int

	// ComputeLabels fills job.Out with labels for [job.Start, job.End].
	// It blocks until the provider finishes or fails.
	ComputeLabels(ctx context.Context, id ID, job *Job) (Stats, error)
}
