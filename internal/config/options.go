// Package config resolves the parameters of one invocation.
//
// Values come from three layers, later ones winning: built-in defaults,
// an optional YAML config file, and command-line flags. Numeric values are
// clamped to their documented bounds after merging instead of being
// rejected.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/pflag"
)

// Bounds and defaults.
const (
	MinLabelSize = 1
	MaxLabelSize = 256

	MinLabelsCount = 1
	MaxLabelsCount = 32 * 1024 * 1024

	// MaxCPULabelsCount caps the reference computation when the reference
	// is chosen automatically, since CPU providers are the slowest.
	MaxCPULabelsCount = 9 * 128 * 1024

	DefaultLabelSize   = 8
	DefaultLabelsCount = MaxCPULabelsCount
	DefaultIterations  = 1

	// AutoReference selects the first CPU provider as reference.
	AutoReference = -1
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Options are the fully resolved parameters of one invocation.
type Options struct {
	Mode Mode

	LabelSize         uint32
	LabelsCount       uint64
	Iterations        int
	ProviderID        int
	ReferenceProvider int
	Print             bool

	// ReferenceClamp caps the labels count of an automatically chosen
	// reference.
	ReferenceClamp uint64

	CPUWorkers  int
	Seed        uint64
	Seeded      bool
	ConfigPath  string
	DBPath      string
	MetricsFile string
	VectorPath  string
	OutputPath  string
	Format      string
	Verbose     bool
}

// Defaults returns the built-in parameter values.
func Defaults() Options {
	return Options{
		Mode:              ModeUsage,
		LabelSize:         DefaultLabelSize,
		LabelsCount:       DefaultLabelsCount,
		Iterations:        DefaultIterations,
		ProviderID:        0,
		ReferenceProvider: AutoReference,
		ReferenceClamp:    MaxCPULabelsCount,
		Format:            "text",
	}
}

// ClampLabelSize bounds a label size to [1, 256].
func ClampLabelSize(v int) uint32 {
	return uint32(max(MinLabelSize, min(v, MaxLabelSize)))
}

// ClampLabelsCount bounds a labels count to [1, 32M].
func ClampLabelsCount(v int64) uint64 {
	return uint64(max(MinLabelsCount, min(v, MaxLabelsCount)))
}

// ClampIterations bounds an iteration count to at least 1.
func ClampIterations(v int) int {
	return max(1, v)
}

// Resolve builds Options from parsed flags. The config file named by
// --config, if any, supplies values for flags that were not given.
func Resolve(fs *pflag.FlagSet) (Options, error) {
	opts := Defaults()

	mode, err := resolveMode(fs)
	if err != nil {
		return Options{}, err
	}
	opts.Mode = mode

	if path, _ := fs.GetString("config"); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return Options{}, err
		}
		file.apply(&opts)
		opts.ConfigPath = path
	}

	setInt := func(name string, set func(int64)) error {
		if !fs.Changed(name) {
			return nil
		}
		v, err := saturatingInt(fs, name)
		if err != nil {
			return err
		}
		set(v)
		return nil
	}
	for _, err := range []error{
		setInt("label-size", func(v int64) { opts.LabelSize = ClampLabelSize(toInt(v)) }),
		setInt("labels-count", func(v int64) { opts.LabelsCount = ClampLabelsCount(v) }),
		setInt("iters", func(v int64) { opts.Iterations = toInt(v) }),
		setInt("provider-id", func(v int64) { opts.ProviderID = toInt(v) }),
		setInt("reference-provider", func(v int64) { opts.ReferenceProvider = toInt(v) }),
		setInt("cpu-workers", func(v int64) { opts.CPUWorkers = toInt(v) }),
	} {
		if err != nil {
			return Options{}, err
		}
	}
	if fs.Changed("seed") {
		v, err := fs.GetUint64("seed")
		if err != nil {
			return Options{}, err
		}
		opts.Seed = v
		opts.Seeded = true
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"db", &opts.DBPath},
		{"metrics-file", &opts.MetricsFile},
		{"vector", &opts.VectorPath},
		{"output", &opts.OutputPath},
		{"format", &opts.Format},
	}
	for _, f := range strs {
		if fs.Changed(f.name) {
			v, _ := fs.GetString(f.name)
			*f.dst = v
		}
	}
	opts.Print, _ = fs.GetBool("print")
	opts.Verbose, _ = fs.GetBool("verbose")

	opts.Iterations = ClampIterations(opts.Iterations)
	if !isValidFormat(opts.Format) {
		return Options{}, fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
	}
	return opts, nil
}

// saturatingInt parses the string flag name as a decimal integer. Values
// beyond the int64 range saturate so that clamping still applies to them.
func saturatingInt(fs *pflag.FlagSet, name string) (int64, error) {
	raw, err := fs.GetString(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	if err != nil {
		return 0, fmt.Errorf("invalid argument %q for \"--%s\": must be an integer", raw, name)
	}
	return v, nil
}

// toInt narrows v, saturating on platforms where int is 32 bits.
func toInt(v int64) int {
	return int(max(math.MinInt, min(v, math.MaxInt)))
}

// resolveMode returns the single mode selected by fs.
func resolveMode(fs *pflag.FlagSet) (Mode, error) {
	var modes []Mode
	for _, f := range Table {
		if !f.IsMode() || fs.Lookup(f.Long) == nil {
			continue
		}
		if on, _ := fs.GetBool(f.Long); on {
			modes = append(modes, f.Mode)
		}
	}
	switch len(modes) {
	case 0:
		return ModeUsage, nil
	case 1:
		return modes[0], nil
	default:
		return ModeUsage, &ModeConflictError{Modes: modes}
	}
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
