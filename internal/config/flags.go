package config

import (
	"sort"
	"strings"
)

// FlagDef declares one command-line flag. Short holds the historical
// single-dash form, which may be longer than one letter ("il").
type FlagDef struct {
	Long  string
	Short string
	Usage string

	// Mode is set for flags that select a mode.
	Mode Mode

	// TakesValue is set for flags followed by an argument.
	TakesValue bool
}

// IsMode reports whether the flag selects a mode.
func (f FlagDef) IsMode() bool {
	return f.Mode != ModeUsage
}

// Table lists every flag the command accepts, in usage order.
var Table = []FlagDef{
	{Long: "list", Short: "l", Mode: ModeList, Usage: "print available providers"},
	{Long: "benchmark", Short: "b", Mode: ModeBenchmark, Usage: "benchmark every non-CPU provider"},
	{Long: "long-run", Short: "l", Mode: ModeLongRun, Usage: "repeat labeling on --provider-id for --iters iterations"},
	{Long: "test", Short: "t", Mode: ModeCrossValidate, Usage: "compare every non-CPU provider against the reference"},
	{Long: "test-vector-check", Mode: ModeTestVectorCheck, Usage: "compare the CPU provider against the test vector"},
	{Long: "test-vector-create", Mode: ModeTestVectorCreate, Usage: "print a new test vector from the CPU provider"},
	{Long: "unit-tests", Short: "u", Mode: ModeUnitTests, Usage: "run the unit test suite"},
	{Long: "integration-tests", Short: "i", Mode: ModeIntegrationTests, Usage: "run all integration test suites"},
	{Long: "integration-test-length", Short: "il", Mode: ModeIntegrationLength, Usage: "integration test over label sizes"},
	{Long: "integration-test-labels", Short: "in", Mode: ModeIntegrationLabels, Usage: "integration test over label counts"},
	{Long: "integration-test-concurrency", Short: "ip", Mode: ModeIntegrationConcurrency, Usage: "integration test of concurrent providers"},
	{Long: "integration-test-cancelation", Short: "ic", Mode: ModeIntegrationCancelation, Usage: "integration test of cancelation"},
	{Long: "history", Mode: ModeHistory, Usage: "list runs recorded in --db"},

	{Long: "label-size", Short: "s", TakesValue: true, Usage: "label size in bits [1-256]"},
	{Long: "labels-count", Short: "n", TakesValue: true, Usage: "labels count [1-32M]"},
	{Long: "iters", Short: "i", TakesValue: true, Usage: "long-run iterations"},
	{Long: "provider-id", Short: "r", TakesValue: true, Usage: "long-run provider id"},
	{Long: "reference-provider", Short: "r", TakesValue: true, Usage: "provider whose output is the reference [default: first CPU]"},
	{Long: "print", Short: "p", Usage: "print a block report for incorrect results"},

	{Long: "config", TakesValue: true, Usage: "YAML file with default parameters"},
	{Long: "db", TakesValue: true, Usage: "SQLite database recording runs"},
	{Long: "metrics-file", TakesValue: true, Usage: "write Prometheus metrics to this file"},
	{Long: "vector", TakesValue: true, Usage: "test vector file for --test-vector-check [default: embedded]"},
	{Long: "output", Short: "o", TakesValue: true, Usage: "write the created test vector to this file"},
	{Long: "seed", TakesValue: true, Usage: "seed identity and salt generation [default: random]"},
	{Long: "cpu-workers", TakesValue: true, Usage: "goroutines used by the CPU provider [default: all cores]"},
	{Long: "format", TakesValue: true, Usage: "output format (text|json)"},
	{Long: "verbose", Short: "v", Usage: "verbose output"},
}

// Collisions returns the short forms shared by more than one flag, mapped
// to the long names that claim them.
func Collisions(table []FlagDef) map[string][]string {
	owners := make(map[string][]string)
	for _, f := range table {
		if f.Short != "" {
			owners[f.Short] = append(owners[f.Short], f.Long)
		}
	}
	out := make(map[string][]string)
	for short, longs := range owners {
		if len(longs) > 1 {
			out[short] = longs
		}
	}
	return out
}

// Shorthand returns the pflag shorthand for f: its short form when that is
// a single letter not shared with another flag.
func Shorthand(table []FlagDef, f FlagDef) string {
	if len(f.Short) != 1 {
		return ""
	}
	if _, ambiguous := Collisions(table)[f.Short]; ambiguous {
		return ""
	}
	return f.Short
}

// NormalizeArgs rewrites historical single-dash forms that pflag cannot
// parse ("-il") to their long names and rejects short forms shared by
// several flags with an AmbiguousFlagError.
func NormalizeArgs(table []FlagDef, args []string) ([]string, error) {
	collisions := Collisions(table)
	byShort := make(map[string]FlagDef)
	byLong := make(map[string]FlagDef)
	for _, f := range table {
		byLong[f.Long] = f
		if f.Short != "" {
			byShort[f.Short] = f
		}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}

		var def FlagDef
		var known bool
		switch {
		case strings.HasPrefix(arg, "--"):
			name, _, hasValue := strings.Cut(arg[2:], "=")
			def, known = byLong[name]
			out = append(out, arg)
			if known && def.TakesValue && !hasValue && i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
			continue
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			name, value, hasValue := strings.Cut(arg[1:], "=")
			if longs, ambiguous := collisions[name]; ambiguous {
				sorted := append([]string(nil), longs...)
				sort.Strings(sorted)
				return nil, &AmbiguousFlagError{Short: name, Longs: sorted}
			}
			def, known = byShort[name]
			if !known {
				out = append(out, arg)
				continue
			}
			rewritten := "--" + def.Long
			if hasValue {
				rewritten += "=" + value
			}
			out = append(out, rewritten)
			if def.TakesValue && !hasValue && i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}
