package tasks

import (
	"fmt"

	"github.com/desertthunder/ytbulk/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI, TUI or websocket layer for display.
type ProgressUpdate struct {
	Phase   Phase  `json:"phase"`          // Operation phase
	Step    int    `json:"step"`           // Current step number within phase
	Total   int    `json:"total"`          // Total steps in this phase
	Message string `json:"message"`        // Human-readable message for display
	Data    any    `json:"data,omitempty"` // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	SearchTracks
	InsertTrack
	SkipTrack
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case SearchTracks:
		return "search_tracks"
	case InsertTrack:
		return "insert_track"
	case SkipTrack:
		return "skip_track"
	case Done:
		return "done"
	default:
		return ""
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DoneSummary is the Data payload of the final update.
type DoneSummary struct {
	PlaylistID string `json:"playlist_id"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   1,
		Message: "Fetching playlists from YouTube...",
	}
}

func foundPlaylistsUpdate(playlists []models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", len(playlists)),
	}
}

func searchTrackUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching: %s", step, total, query),
	}
}

func insertTrackUpdate(step, total int, tr *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   InsertTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, tr.Title),
		Data:    tr,
	}
}

func skipTrackUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SkipTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ no match: %s", step, total, query),
	}
}

func doneUpdate(result *ImportResult, err error) ProgressUpdate {
	summary := DoneSummary{
		PlaylistID: result.PlaylistID,
		Total:      result.Total,
		Processed:  result.Processed(),
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
	}

	msg := fmt.Sprintf("Added %d of %d songs", result.Inserted, result.Total)
	if err != nil {
		summary.Error = err.Error()
		msg = fmt.Sprintf("Stopped after %d of %d songs: %v", result.Processed(), result.Total, err)
	}

	return ProgressUpdate{
		Phase:   Done,
		Step:    result.Processed(),
		Total:   result.Total,
		Message: msg,
		Data:    summary,
	}
}
