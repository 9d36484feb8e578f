package config

import (
	"fmt"
	"strings"
)

// AmbiguousFlagError reports a short flag claimed by several long flags.
// Use the long form instead.
type AmbiguousFlagError struct {
	Short string
	Longs []string
}

func (e *AmbiguousFlagError) Error() string {
	alts := make([]string, len(e.Longs))
	for i, l := range e.Longs {
		alts[i] = "--" + l
	}
	return fmt.Sprintf("ambiguous flag -%s: it means %s; use the long form", e.Short, strings.Join(alts, " or "))
}

// ModeConflictError reports more than one mode flag in one invocation.
type ModeConflictError struct {
	Modes []Mode
}

func (e *ModeConflictError) Error() string {
	names := make([]string, len(e.Modes))
	for i, m := range e.Modes {
		names[i] = "--" + m.String()
	}
	return fmt.Sprintf("modes are mutually exclusive, got %s", strings.Join(names, ", "))
}
