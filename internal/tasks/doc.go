// Package tasks runs the bulk import with real-time progress reporting.
//
// # Core Operations
//
// The [Importer] interface defines two operations:
//
//  1. [Importer.ListPlaylists] : one page of the user's playlists
//
//  2. [Importer.Import] : the search-then-insert loop
//     - Searches each line (first video result only)
//     - Inserts the hit into the destination playlist
//     - Skips lines without a result
//     - Stops at the first upstream error and returns the partial [ImportResult]
//
// Lines are processed strictly in order, one request at a time, with no retry or de-duplication.
//
// # Input
//
// [ParseLines], [SplitLines] and [GatherLines] turn uploaded files and pasted text into
// trimmed, non-blank lines. File lines come before text lines.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Import History
//
// The optional [JobRecorder] interface persists each run and the outcome of every line.
// Recorder errors are logged and never interrupt an import.
package tasks
