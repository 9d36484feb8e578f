// Package harness checks label providers against each other and against
// fixed test vectors, and measures their throughput.
//
// Every mode follows the same shape: enumerate providers, generate or load
// the inputs, allocate the output buffers through the layout package, then
// invoke providers one at a time. Nothing here runs providers concurrently
// except the concurrency suite, whose purpose is to do exactly that.
//
// # Reference selection
//
// A cross-provider run compares every non-CPU provider against a
// reference output:
//
//   - an explicit reference provider computes the full labels count;
//   - otherwise the first CPU provider computes at most ReferenceClamp
//     labels, and comparison covers the common prefix only;
//   - with neither, nothing is compared and the result says so
//     (OutcomeNotPerformed).
//
// # Outcomes
//
// Modes return a Result. Mismatches are findings, not errors: they are
// recorded in the result and the run continues with the next provider.
// Errors returned alongside a nil Result abort the mode: enumeration
// inconsistencies, out of bounds provider ids and allocation failures.
//
// # Determinism
//
// Identity and salt are read from the entropy source passed with
// WithEntropy, and elapsed times from the clock passed with WithClock, so
// tests can pin both.
package harness
