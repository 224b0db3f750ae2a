package repositories

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
)

// ImportRecorder implements tasks.JobRecorder using ImportRepository.
//
// Every job it creates belongs to sessionID.
type ImportRecorder struct {
	repo      *ImportRepository
	sessionID string
}

// NewImportRecorder creates a new ImportRecorder writing jobs for sessionID
func NewImportRecorder(repo *ImportRepository, sessionID string) *ImportRecorder {
	return &ImportRecorder{repo: repo, sessionID: sessionID}
}

// StartJob creates a running job and returns its ID.
func (a *ImportRecorder) StartJob(playlistID string, linesTotal int) (string, error) {
	job := models.NewImportJob(0, a.sessionID, playlistID, linesTotal)
	job.Start(time.Now())

	if err := a.repo.Create(job); err != nil {
		return "", fmt.Errorf("failed to record import: %w", err)
	}
	return job.ID(), nil
}

// RecordItem stores the outcome of one line.
func (a *ImportRecorder) RecordItem(jobID string, item models.ImportItem) error {
	item.ImportID = jobID
	return a.repo.AddItem(&item)
}

// FinishJob stores the final counts; a non-nil importErr marks the job failed.
func (a *ImportRecorder) FinishJob(jobID string, inserted, skipped int, importErr error) error {
	job, err := a.repo.Get(jobID)
	if err != nil {
		return err
	}

	job.Finish(time.Now(), inserted, skipped, importErr)
	return a.repo.Update(job)
}
