package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// File is the decoded config file. Nil fields were not set.
type File struct {
	LabelSize      *int    `json:"label_size,omitempty"`
	LabelsCount    *int64  `json:"labels_count,omitempty"`
	Iterations     *int    `json:"iterations,omitempty"`
	ReferenceClamp *uint64 `json:"reference_clamp,omitempty"`
	CPUWorkers     *int    `json:"cpu_workers,omitempty"`
	Seed           *uint64 `json:"seed,omitempty"`
	DB             *string `json:"db,omitempty"`
	MetricsFile    *string `json:"metrics_file,omitempty"`
	Format         *string `json:"format,omitempty"`
}

// LoadFile reads a YAML config file and validates it against the
// embedded CUE schema.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFile decodes and validates config file contents.
func ParseFile(data []byte) (*File, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid embedded schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}

	var f File
	if err := value.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &f, nil
}

// apply copies the set fields of f into opts, clamping like flags do.
func (f *File) apply(opts *Options) {
	if f.LabelSize != nil {
		opts.LabelSize = ClampLabelSize(*f.LabelSize)
	}
	if f.LabelsCount != nil {
		opts.LabelsCount = ClampLabelsCount(*f.LabelsCount)
	}
	if f.Iterations != nil {
		opts.Iterations = *f.Iterations
	}
	if f.ReferenceClamp != nil {
		opts.ReferenceClamp = *f.ReferenceClamp
	}
	if f.CPUWorkers != nil {
		opts.CPUWorkers = *f.CPUWorkers
	}
	if f.Seed != nil {
		opts.Seed = *f.Seed
		opts.Seeded = true
	}
	if f.DB != nil {
		opts.DBPath = *f.DB
	}
	if f.MetricsFile != nil {
		opts.MetricsFile = *f.MetricsFile
	}
	if f.Format != nil {
		opts.Format = *f.Format
	}
}
