// package tasks implements the bulk import of song request lines into a YouTube playlist.
//
// The core abstraction is ImportEngine, which lists playlists and runs the search-then-insert loop.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI/web layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
)

// LineResult is the outcome of a single song request line.
type LineResult struct {
	Position int           // Zero-based index in the submitted lines
	Query    string        // The line as searched
	Track    *models.Track // First search hit (nil when skipped)
	Status   string        // models.ItemStatus*
	Error    error         // Upstream error that stopped the import
}

// ImportResult contains all data from an import run, including a partial run stopped by an error.
type ImportResult struct {
	JobID      string       // Recorded job ID (empty without a recorder)
	PlaylistID string       // Destination playlist
	Total      int          // Number of submitted lines
	Lines      []LineResult // Processed lines, in input order
	Inserted   int          // Lines that produced an insert
	Skipped    int          // Lines whose search returned nothing
}

// Processed is the number of lines handled before the run ended.
func (r *ImportResult) Processed() int {
	return len(r.Lines)
}

// Importer defines operations for bulk adding songs to a playlist.
type Importer interface {
	// ListPlaylists fetches the playlists the user may import into.
	ListPlaylists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error)

	// Import searches each line and inserts the first hit into playlistID, strictly in order.
	Import(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, lines []string) (*ImportResult, error)
}

// JobRecorder persists import history while a run is in progress.
//
// Implemented by repositories.ImportRecorder. Recorder failures are logged and never stop an import.
type JobRecorder interface {
	StartJob(playlistID string, linesTotal int) (string, error)
	RecordItem(jobID string, item models.ImportItem) error
	FinishJob(jobID string, inserted, skipped int, importErr error) error
}

// ImportEngine implements Importer on top of a [services.Service].
type ImportEngine struct {
	service  services.Service
	recorder JobRecorder
	logger   *log.Logger
}

// NewImportEngine creates a new ImportEngine. A nil logger uses [log.Default].
func NewImportEngine(service services.Service, logger *log.Logger) *ImportEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ImportEngine{service: service, logger: logger}
}

// WithRecorder attaches a history recorder and returns the engine.
func (e *ImportEngine) WithRecorder(r JobRecorder) *ImportEngine {
	e.recorder = r
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ImportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ListPlaylists fetches one page of the user's playlists.
func (e *ImportEngine) ListPlaylists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchPlaylistsUpdate())

	playlists, err := e.service.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, foundPlaylistsUpdate(playlists))
	return playlists, nil
}

// Import runs the sequential search-then-insert loop.
//
// Lines without a search result are skipped. The first upstream error stops the run and is
// returned together with the partial result; nothing already inserted is undone.
func (e *ImportEngine) Import(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, lines []string) (*ImportResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	result := &ImportResult{PlaylistID: playlistID, Total: len(lines)}
	if len(lines) == 0 {
		e.sendProgress(progress, doneUpdate(result, nil))
		return result, nil
	}
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	result.JobID = e.startJob(playlistID, len(lines))
	logger := e.logger.With("playlist_id", playlistID)

	runErr := e.run(ctx, progress, logger, result, lines)

	e.finishJob(result, runErr)
	e.sendProgress(progress, doneUpdate(result, runErr))

	if runErr != nil {
		logger.Error("import stopped", "processed", result.Processed(), "total", result.Total, "err", runErr)
		return result, runErr
	}

	logger.Info("import finished", "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

func (e *ImportEngine) run(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, result *ImportResult, lines []string) error {
	total := len(lines)

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.sendProgress(progress, searchTrackUpdate(i+1, total, line))

		lr := LineResult{Position: i, Query: line}

		track, err := e.service.SearchTrack(ctx, line)
		switch {
		case errors.Is(err, shared.ErrTrackNotFound):
			lr.Status = models.ItemStatusSkipped
			result.Skipped++
			e.record(result, lr)
			e.sendProgress(progress, skipTrackUpdate(i+1, total, line))
			logger.Debug("no match", "query", line)
			continue
		case err != nil:
			lr.Status = models.ItemStatusFailed
			lr.Error = err
			e.record(result, lr)
			return fmt.Errorf("search %q: %w", line, err)
		}

		lr.Track = track

		if err := e.service.AddTrack(ctx, result.PlaylistID, track.VideoID); err != nil {
			lr.Status = models.ItemStatusFailed
			lr.Error = err
			e.record(result, lr)
			return fmt.Errorf("insert %q: %w", track.Title, err)
		}

		lr.Status = models.ItemStatusInserted
		result.Inserted++
		e.record(result, lr)
		e.sendProgress(progress, insertTrackUpdate(i+1, total, track))
		logger.Info("added to youtube", "title", track.Title, "video_id", track.VideoID)
	}

	return nil
}

// record appends lr to the result and writes it to history.
func (e *ImportEngine) record(result *ImportResult, lr LineResult) {
	result.Lines = append(result.Lines, lr)

	if e.recorder == nil || result.JobID == "" {
		return
	}

	item := models.ImportItem{Position: lr.Position, Query: lr.Query, Status: lr.Status}
	if lr.Track != nil {
		item.VideoID = lr.Track.VideoID
		item.Title = lr.Track.Title
	}
	if err := e.recorder.RecordItem(result.JobID, item); err != nil {
		e.logger.Warn("failed to record import item", "job_id", result.JobID, "position", lr.Position, "err", err)
	}
}

func (e *ImportEngine) startJob(playlistID string, total int) string {
	if e.recorder == nil {
		return ""
	}
	id, err := e.recorder.StartJob(playlistID, total)
	if err != nil {
		e.logger.Warn("failed to record import", "playlist_id", playlistID, "err", err)
		return ""
	}
	return id
}

func (e *ImportEngine) finishJob(result *ImportResult, runErr error) {
	if e.recorder == nil || result.JobID == "" {
		return
	}
	if err := e.recorder.FinishJob(result.JobID, result.Inserted, result.Skipped, runErr); err != nil {
		e.logger.Warn("failed to finish import record", "job_id", result.JobID, "err", err)
	}
}
