package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytbulk/internal/shared"
)

// Import job statuses
const (
	ImportStatusPending   = "pending"
	ImportStatusRunning   = "running"
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

// Import item statuses
const (
	ItemStatusInserted = "inserted"
	ItemStatusSkipped  = "skipped"
	ItemStatusFailed   = "failed"
)

// ImportJob records one upload: the destination playlist and how its lines fared.
type ImportJob struct {
	persisted
	sessionID      string
	playlistID     string
	status         string
	linesTotal     int
	tracksInserted int
	tracksSkipped  int
	errorMessage   string
	startedAt      *time.Time
	completedAt    *time.Time
}

// NewImportJob creates a pending job for playlistID.
func NewImportJob(sequence int, sessionID, playlistID string, linesTotal int) *ImportJob {
	return &ImportJob{
		persisted:  newPersisted(sequence),
		sessionID:  sessionID,
		playlistID: playlistID,
		status:     ImportStatusPending,
		linesTotal: linesTotal,
	}
}

func (j *ImportJob) SessionID() string { return j.sessionID }
func (j *ImportJob) PlaylistID() string { return j.playlistID }
func (j *ImportJob) Status() string { return j.status }
func (j *ImportJob) LinesTotal() int { return j.linesTotal }
func (j *ImportJob) TracksInserted() int { return j.tracksInserted }
func (j *ImportJob) TracksSkipped() int { return j.tracksSkipped }
func (j *ImportJob) ErrorMessage() string { return j.errorMessage }
func (j *ImportJob) StartedAt() *time.Time { return j.startedAt }
func (j *ImportJob) CompletedAt() *time.Time { return j.completedAt }
func (j *ImportJob) SetStatus(s string) { j.status = s }
func (j *ImportJob) SetTracksInserted(n int) { j.tracksInserted = n }
func (j *ImportJob) SetTracksSkipped(n int) { j.tracksSkipped = n }
func (j *ImportJob) SetErrorMessage(m string) { j.errorMessage = m }
func (j *ImportJob) SetStartedAt(t *time.Time) { j.startedAt = t }
func (j *ImportJob) SetCompletedAt(t *time.Time) { j.completedAt = t }

// Start marks the job running.
func (j *ImportJob) Start(now time.Time) {
	now = now.UTC()
	j.status = ImportStatusRunning
	j.startedAt = &now
}

// Finish records the final counts. A non-nil err marks the job failed.
func (j *ImportJob) Finish(now time.Time, inserted, skipped int, err error) {
	now = now.UTC()
	j.tracksInserted = inserted
	j.tracksSkipped = skipped
	j.completedAt = &now
	if err != nil {
		j.status = ImportStatusFailed
		j.errorMessage = err.Error()
		return
	}
	j.status = ImportStatusCompleted
}

// Duration is the time between start and completion, zero while either is unset.
func (j *ImportJob) Duration() time.Duration {
	if j.startedAt == nil || j.completedAt == nil {
		return 0
	}
	return j.completedAt.Sub(*j.startedAt)
}

// Validate checks if the job's data is valid.
func (j *ImportJob) Validate() error {
	if j.playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if j.sessionID == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrInvalidInput)
	}
	switch j.status {
	case ImportStatusPending, ImportStatusRunning, ImportStatusCompleted, ImportStatusFailed:
	default:
		return fmt.Errorf("%w: unknown import status %q", shared.ErrInvalidInput, j.status)
	}
	if j.linesTotal < 0 || j.tracksInserted < 0 || j.tracksSkipped < 0 {
		return fmt.Errorf("%w: counts must not be negative", shared.ErrInvalidInput)
	}
	return nil
}

// ImportItem is the outcome of one song request line within a job.
type ImportItem struct {
	ID        string
	ImportID  string
	Position  int
	Query     string
	VideoID   string
	Title     string
	Status    string
	CreatedAt time.Time
}
