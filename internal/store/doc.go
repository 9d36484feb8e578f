// Package store provides SQLite-backed run history.
//
// Every recorded run gets one row in runs, one row per provider call in
// measurements and one row per failed comparison in mismatches:
//
//   - runs: mode, outcome, parameters, timing and the full JSON result
//   - measurements: provider, role, throughput and output digest
//   - mismatches: diff summary plus a zstd-compressed sample of both sides
//
// Run ids are UUIDv7 strings, so ORDER BY id lists runs in creation order
// without relying on wall-clock columns.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
