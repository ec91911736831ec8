// Package store provides the flat string media behind the entry codec and
// a SQLite-backed secondary record store.
//
// # Flat Media
//
//   - Flat: one whole-document string per namespace in the flat_blobs table
//   - Memory: an in-process string, used by tests and the scenario harness
//
// Both implement codec.FlatStore. A namespace can be disabled, which makes
// the codec treat it as unusable, and can carry a byte quota that Write
// enforces with ErrQuotaExceeded.
//
// # Records
//
// Records holds structured bodies keyed by (identity, schema) and addressed
// by a zero-based index. Schemas are CUE sources registered by name; every
// body is unified with its schema and must be concrete before it is stored.
// Bodies are stored as RFC 8785 canonical JSON.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
