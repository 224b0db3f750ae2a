// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a single import:
//  1. [PlaylistListView] : Browse and select one of the user's YouTube playlists
//  2. [ConfirmView] : Preview the song lines and confirm the import
//  3. [ImportView] : Monitor real-time progress updates with a spinner
//  4. [ResultView] : Show inserted and skipped counts, and any error that stopped the run
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the ImportEngine, providing non-blocking status reporting during imports.
//
// Each view shows its own key bindings (enter, y, n/esc, r, q) via charmbracelet/bubbles/help; the playlist list keeps
// the bubbles list navigation and filtering.
package ui
