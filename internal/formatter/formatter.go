// package formatter renders playlists, import reports and import history as CSV, Markdown, JSON or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/desertthunder/ytbulk/internal/tasks"
)

// Format names accepted by [Playlists].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Playlists renders playlists in the named format.
func Playlists(format string, playlists []models.Playlist) ([]byte, error) {
	switch format {
	case "", FormatText:
		return PlaylistsToText(playlists)
	case FormatCSV:
		return PlaylistsToCSV(playlists)
	case FormatMarkdown, "md":
		return PlaylistsToMarkdown(playlists)
	case FormatJSON:
		return PlaylistsToJSON(playlists)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// PlaylistsToCSV converts playlists to CSV with columns: ID, Title
func PlaylistsToCSV(playlists []models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Title"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, pl := range playlists {
		if err := writer.Write([]string{pl.ID, pl.Title}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PlaylistsToMarkdown converts playlists to a Markdown table
func PlaylistsToMarkdown(playlists []models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# YouTube Playlists\n\n")
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n\n", len(playlists)))
	buf.WriteString("| # | Title | ID |\n")
	buf.WriteString("|---|-------|----|\n")
	for i, pl := range playlists {
		buf.WriteString(fmt.Sprintf("| %d | %s | `%s` |\n", i+1, escapeMarkdown(pl.Title), pl.ID))
	}

	return buf.Bytes(), nil
}

// PlaylistsToText converts playlists to aligned plain text
func PlaylistsToText(playlists []models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for i, pl := range playlists {
		fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, pl.Title, pl.ID)
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write text: %w", err)
	}
	buf.WriteString(fmt.Sprintf("\n%d playlists\n", len(playlists)))

	return buf.Bytes(), nil
}

// PlaylistsToJSON encodes playlists the same way GET /get_playlists does
func PlaylistsToJSON(playlists []models.Playlist) ([]byte, error) {
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	data, err := json.MarshalIndent(map[string]any{"playlists": playlists}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlists: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportReport summarizes a finished (or stopped) import, listing every processed line.
func ImportReport(result *tasks.ImportResult, importErr error) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.PlaylistID))
	if result.JobID != "" {
		buf.WriteString(fmt.Sprintf("Import: %s\n", result.JobID))
	}
	buf.WriteString(fmt.Sprintf("Added: %d\n", result.Inserted))
	buf.WriteString(fmt.Sprintf("Skipped: %d\n", result.Skipped))
	buf.WriteString(fmt.Sprintf("Processed: %d/%d\n", result.Processed(), result.Total))
	if importErr != nil {
		buf.WriteString(fmt.Sprintf("Stopped: %v\n", importErr))
	}

	if len(result.Lines) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("\n")
	for _, lr := range result.Lines {
		switch lr.Status {
		case models.ItemStatusInserted:
			buf.WriteString(fmt.Sprintf("  ✓ %s → %s (%s)\n", lr.Query, lr.Track.Title, lr.Track.VideoID))
		case models.ItemStatusSkipped:
			buf.WriteString(fmt.Sprintf("  - %s (no match)\n", lr.Query))
		default:
			buf.WriteString(fmt.Sprintf("  ✗ %s: %v\n", lr.Query, lr.Error))
		}
	}

	return buf.Bytes()
}

// HistoryToText renders import jobs as an aligned table, newest first as given.
func HistoryToText(jobs []*models.ImportJob) ([]byte, error) {
	var buf bytes.Buffer
	if len(jobs) == 0 {
		buf.WriteString("No imports recorded\n")
		return buf.Bytes(), nil
	}

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPLAYLIST\tSTATUS\tADDED\tSKIPPED\tLINES\tDURATION")
	for _, job := range jobs {
		started := "-"
		if at := job.StartedAt(); at != nil {
			started = at.Local().Format(time.DateTime)
		}
		duration := "-"
		if d := job.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			started, job.PlaylistID(), job.Status(),
			job.TracksInserted(), job.TracksSkipped(), job.LinesTotal(), duration)
		if msg := job.ErrorMessage(); msg != "" {
			fmt.Fprintf(tw, "\t↳ %s\t\t\t\t\t\n", msg)
		}
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write history: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func escapeMarkdown(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		if r == '|' {
			buf.WriteString(`\|`)
			continue
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
