// Package compute defines the boundary between the harness and label
// providers.
//
// A Runtime enumerates providers and runs labeling jobs on them. The
// harness never looks behind that boundary: providers may be pure Go, a
// cgo binding to a GPU library, or a test fake. Everything here is
// synchronous from the caller's point of view; whatever parallelism a
// provider uses stays inside ComputeLabels.
//
// # Enumeration
//
// Runtime.Enumerate follows a two-call protocol. Enumerate(nil) returns the
// provider count without writing anything, and Enumerate(dst) fills dst and
// returns the number of entries written. Enumerate in this package wraps
// the protocol and treats a short fill as an InconsistencyError.
//
// # Invocation
//
// Invoke issues one blocking ComputeLabels call and measures its wall clock
// duration. The call has no timeout.
package compute
