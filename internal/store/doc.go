// Package store is the SQLite archive of ibis solve runs.
//
// The archive is write-only from the solver's point of view: runs are
// recorded for inspection with `ibis archive` and never read back into a
// solve.
//
//   - runs: one row per solve (input digest, flags, counters, warnings)
//   - solutions: selected Solutions by content digest, unique per run
//   - edges: the edges of each Solution
//   - feedback: has_tag, leak, type_error and capability_error rows
//
// All ordering uses the logical seq column, never timestamps. Feedback rows
// are canonical JSON arrays produced by internal/ir.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
