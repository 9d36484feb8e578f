package compute

import (
	"errors"
	"fmt"
)

// ErrNoProviders is returned by Enumerate when the runtime reports no
// providers at all.
var ErrNoProviders = errors.New("no compute providers available")

// InconsistencyError reports that the fill call of an enumeration returned
// fewer providers than the count call promised.
type InconsistencyError struct {
	Expected int
	Got      int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("provider enumeration inconsistent: count call reported %d, fill call returned %d", e.Expected, e.Got)
}

// OutOfBoundsError reports an explicit provider index that is not part of
// the enumeration.
type OutOfBoundsError struct {
	Index int
	Count int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("out of bounds provider id %d (%d providers available)", e.Index, e.Count)
}

// IsOutOfBounds reports whether err is an OutOfBoundsError.
func IsOutOfBounds(err error) bool {
	var oob *OutOfBoundsError
	return errors.As(err, &oob)
}

// ProviderError wraps a failure reported by one provider.
type ProviderError struct {
	Index    int
	Provider Provider
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %d %s: %v", e.Index, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
