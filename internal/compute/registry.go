package compute

import "fmt"

// Enumerate runs the count-then-fill protocol against rt.
//
// It returns ErrNoProviders when the count call reports zero and an
// InconsistencyError when the fill call writes fewer entries than counted.
// A provider reporting an undeclared class is an error as well.
func Enumerate(rt Runtime) ([]Provider, error) {
	n := rt.Enumerate(nil)
	if n <= 0 {
		return nil, ErrNoProviders
	}
	providers := make([]Provider, n)
	got := rt.Enumerate(providers)
	if got < n {
		return nil, &InconsistencyError{Expected: n, Got: got}
	}
	for i, p := range providers {
		if !p.Class.Valid() {
			return nil, fmt.Errorf("provider %d reports invalid class %d", i, uint8(p.Class))
		}
	}
	return providers, nil
}

// Lookup returns providers[index] or an OutOfBoundsError.
func Lookup(providers []Provider, index int) (Provider, error) {
	if index < 0 || index >= len(providers) {
		return Provider{}, &OutOfBoundsError{Index: index, Count: len(providers)}
	}
	return providers[index], nil
}

// FirstOfClass returns the index of the first provider whose class
// satisfies match, or -1.
func FirstOfClass(providers []Provider, match func(Class) bool) int {
	for i, p := range providers {
		if match(p.Class) {
			return i
		}
	}
	return -1
}
