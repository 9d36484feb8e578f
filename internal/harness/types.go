package harness

import (
	"time"

	"go.uber.org/multierr"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/labels"
)

// Outcome summarizes a mode's result.
type Outcome string

const (
	// OutcomePass means every comparison or check matched.
	OutcomePass Outcome = "pass"

	// OutcomeFail means at least one mismatch, failed check or provider
	// error was recorded.
	OutcomeFail Outcome = "fail"

	// OutcomeNoProviders means the mode could not find a provider to run.
	OutcomeNoProviders Outcome = "no-providers"

	// OutcomeNotPerformed means providers ran but nothing was compared.
	OutcomeNotPerformed Outcome = "not-performed"

	// OutcomeDone is used by modes that measure without judging.
	OutcomeDone Outcome = "done"
)

// Role says why a provider was invoked.
type Role string

const (
	RoleReference Role = "reference"
	RoleCandidate Role = "candidate"
	RoleBenchmark Role = "benchmark"
	RoleVector    Role = "vector"
	RoleIteration Role = "iteration"
	RoleSuite     Role = "suite"
)

// Params are the numeric inputs of a run.
type Params struct {
	LabelSize         uint32
	LabelsCount       uint64
	Iterations        int
	ProviderID        int
	ReferenceProvider int
	ReferenceClamp    uint64
	Print             bool
}

// Measurement records one labeling call.
type Measurement struct {
	ProviderIndex int              `json:"provider_index"`
	Provider      compute.Provider `json:"provider"`
	Role          Role             `json:"role"`
	Iteration     int              `json:"iteration,omitempty"`
	LabelSize     uint32           `json:"label_size"`
	Labels        uint64           `json:"labels"`
	Hashes        uint64           `json:"hashes"`
	HashesPerSec  uint64           `json:"hashes_per_sec"`
	Elapsed       time.Duration    `json:"elapsed"`
	Digest        string           `json:"digest"`
}

// Comparison records one byte-exact comparison.
type Comparison struct {
	ProviderIndex int              `json:"provider_index"`
	Provider      compute.Provider `json:"provider"`
	Against       string           `json:"against"`
	LabelSize     uint32           `json:"label_size"`
	Diff          labels.Diff      `json:"diff"`

	// Expected and Actual hold up to SampleSize bytes from the block of the
	// first mismatch onward.
	Expected []byte `json:"expected,omitempty"`
	Actual   []byte `json:"actual,omitempty"`
}

// Match reports whether the comparison found no difference.
func (c Comparison) Match() bool {
	return c.Diff.Equal()
}

// Check is the outcome of one named suite check. A skipped check could
// not be performed; it neither passes nor fails.
type Check struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Reference describes the output comparisons were made against.
type Reference struct {
	Index       int              `json:"index"`
	Provider    compute.Provider `json:"provider"`
	LabelsCount uint64           `json:"labels_count"`
	Explicit    bool             `json:"explicit"`
	Fallback    bool             `json:"fallback,omitempty"`
}

// Result is the outcome of one mode.
type Result struct {
	Mode        string             `json:"mode"`
	Outcome     Outcome            `json:"outcome"`
	LabelSize   uint32             `json:"label_size,omitempty"`
	LabelsCount uint64             `json:"labels_count,omitempty"`
	Providers   []compute.Provider `json:"providers,omitempty"`
	Reference   *Reference         `json:"reference,omitempty"`

	Measurements []Measurement `json:"measurements,omitempty"`
	Comparisons  []Comparison  `json:"comparisons,omitempty"`
	Checks       []Check       `json:"checks,omitempty"`

	// Notes are informational messages, Errors are provider failures.
	Notes  []string `json:"notes,omitempty"`
	Errors []string `json:"errors,omitempty"`

	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`

	errs error
}

// NewResult creates an empty result for mode.
func NewResult(mode string) *Result {
	return &Result{Mode: mode, Outcome: OutcomeDone}
}

// AddError records a provider failure and marks the result failed.
func (r *Result) AddError(err error) {
	r.errs = multierr.Append(r.errs, err)
	r.Errors = append(r.Errors, err.Error())
	r.Outcome = OutcomeFail
}

// Err returns the recorded provider failures combined into one error, or
// nil.
func (r *Result) Err() error {
	return r.errs
}

// AddNote records an informational message.
func (r *Result) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}

// AddComparison records a comparison and marks the result failed on
// mismatch.
func (r *Result) AddComparison(c Comparison) {
	r.Comparisons = append(r.Comparisons, c)
	if !c.Match() {
		r.Outcome = OutcomeFail
	}
}

// AddCheck records a suite check and marks the result failed if it
// neither passed nor was skipped.
func (r *Result) AddCheck(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Pass && !c.Skipped {
		r.Outcome = OutcomeFail
	}
}

// Passed reports whether the result counts as success for exit codes.
func (r *Result) Passed() bool {
	return r.Outcome == OutcomePass
}

// Mismatches returns the comparisons that found a difference.
func (r *Result) Mismatches() []Comparison {
	var out []Comparison
	for _, c := range r.Comparisons {
		if !c.Match() {
			out = append(out, c)
		}
	}
	return out
}
