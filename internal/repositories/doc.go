// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Sessions and import jobs support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SessionRepository] : Browser sessions and their credential bundles
//   - [StateRepository] : One-time OAuth state tokens, consumed atomically
//   - [ImportRepository] : Import history with per-line outcomes
//   - [ImportRecorder] : Adapter letting the import engine write history as it runs
//
// Sequence numbers provide stable, human-readable ordering (e.g., import #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
