package harness

import "github.com/roach88/postbench/internal/compute"

// AutoReference asks ResolveReference to pick the first CPU provider.
const AutoReference = -1

// ResolveReference selects the provider whose output the others are
// compared against.
//
// A requested index that names an existing provider is used as is and
// computes labelsCount labels. Otherwise, including AutoReference and
// indexes out of range, the first CPU provider is chosen and computes at
// most clamp labels; Fallback records that a requested index was ignored.
// The boolean result is false when no reference exists.
func ResolveReference(providers []compute.Provider, requested int, labelsCount, clamp uint64) (Reference, bool) {
	if requested != AutoReference {
		if p, err := compute.Lookup(providers, requested); err == nil {
			return Reference{
				Index:       requested,
				Provider:    p,
				LabelsCount: labelsCount,
				Explicit:    true,
			}, true
		}
	}
	fallback := requested != AutoReference

	idx := compute.FirstOfClass(providers, compute.Class.IsCPU)
	if idx < 0 {
		return Reference{Fallback: fallback}, false
	}
	count := labelsCount
	if clamp > 0 {
		count = min(count, clamp)
	}
	return Reference{
		Index:       idx,
		Provider:    providers[idx],
		LabelsCount: count,
		Fallback:    fallback,
	}, true
}
