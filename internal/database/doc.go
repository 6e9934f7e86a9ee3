// Package database provides SQLite-based storage for gophermirror.
//
// This package implements the MirrorDB, which stores:
//   - Mirror run summaries (counts, byte totals, timing)
//   - Per-resource fetch records (type, size, hash, local path)
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
