package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
)

// ImportRepository implements models.Repository[*models.ImportJob] for import history.
//
// Handles job CRUD operations with soft delete support and status-based queries, plus the per-line items of each job.
type ImportRepository struct {
	db *sql.DB
}

// NewImportRepository creates a new ImportRepository with the given database connection
func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

const importColumns = `
	id, sequence, session_id, playlist_id, status, lines_total,
	tracks_inserted, tracks_skipped, error_message, started_at,
	completed_at, created_at, updated_at, deleted_at
`

// Create inserts a new import job into the database with generated ID and sequence
func (r *ImportRepository) Create(job *models.ImportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "imports")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	job.SetID(id)
	job.SetSequence(sequence)

	query := `
		INSERT INTO imports (
			id, sequence, session_id, playlist_id, status, lines_total,
			tracks_inserted, tracks_skipped, error_message, started_at,
			completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.SessionID(),
		job.PlaylistID(),
		job.Status(),
		job.LinesTotal(),
		job.TracksInserted(),
		job.TracksSkipped(),
		nullString(job.ErrorMessage()),
		nullTime(job.StartedAt()),
		nullTime(job.CompletedAt()),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import: %w", err)
	}

	return nil
}

// Get retrieves an import job by ID, excluding soft-deleted jobs
func (r *ImportRepository) Get(id string) (*models.ImportJob, error) {
	query := "SELECT " + importColumns + " FROM imports WHERE id = ? AND deleted_at IS NULL"

	job, err := r.scan(r.db.QueryRow(query, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: import %s", shared.ErrNotFound, id)
	}
	return job, err
}

// Update modifies an existing import job in the database
func (r *ImportRepository) Update(job *models.ImportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	job.SetUpdatedAt(now)

	query := `
		UPDATE imports
		SET status = ?, tracks_inserted = ?, tracks_skipped = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.Status(),
		job.TracksInserted(),
		job.TracksSkipped(),
		nullString(job.ErrorMessage()),
		nullTime(job.StartedAt()),
		nullTime(job.CompletedAt()),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update import: %w", err)
	}

	return affected(result, fmt.Errorf("%w: import %s", shared.ErrNotFound, job.ID()))
}

// Delete soft-deletes an import job by ID
func (r *ImportRepository) Delete(id string) error {
	query := `
		UPDATE imports
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}

	return affected(result, fmt.Errorf("%w: import %s", shared.ErrNotFound, id))
}

// List retrieves import jobs matching the given criteria, newest first.
//
// Supported criteria: "session_id" (string), "playlist_id" (string), "status" (string), "limit" (int).
func (r *ImportRepository) List(criteria map[string]any) ([]*models.ImportJob, error) {
	query := "SELECT " + importColumns + " FROM imports WHERE deleted_at IS NULL"

	args := []any{}

	for _, key := range []string{"session_id", "playlist_id", "status"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// AddItem records the outcome of one line of an import job
func (r *ImportRepository) AddItem(item *models.ImportItem) error {
	if item.ImportID == "" || item.Query == "" {
		return fmt.Errorf("%w: import id and query are required", shared.ErrInvalidInput)
	}

	item.ID = shared.GenerateID()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO import_items (id, import_id, position, query, video_id, title, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		item.ID,
		item.ImportID,
		item.Position,
		item.Query,
		nullString(item.VideoID),
		nullString(item.Title),
		item.Status,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert import item: %w", err)
	}
	return nil
}

// Items returns the recorded lines of an import job in input order
func (r *ImportRepository) Items(importID string) ([]models.ImportItem, error) {
	query := `
		SELECT id, import_id, position, query, video_id, title, status, created_at
		FROM import_items
		WHERE import_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import items: %w", err)
	}
	defer rows.Close()

	var items []models.ImportItem
	for rows.Next() {
		var (
			item    models.ImportItem
			videoID sql.NullString
			title   sql.NullString
		)
		err := rows.Scan(&item.ID, &item.ImportID, &item.Position, &item.Query, &videoID, &title, &item.Status, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import item: %w", err)
		}
		item.VideoID = videoID.String
		item.Title = title.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// scan reads one import row from a [sql.Row] or [sql.Rows]
func (r *ImportRepository) scan(row scanner) (*models.ImportJob, error) {
	var (
		id             string
		sequence       int
		sessionID      string
		playlistID     string
		status         string
		linesTotal     int
		tracksInserted int
		tracksSkipped  int
		errorMessage   sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &sessionID, &playlistID, &status, &linesTotal,
		&tracksInserted, &tracksSkipped, &errorMessage, &startedAt,
		&completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if isNoRows(err) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import: %w", err)
	}

	job := models.NewImportJob(sequence, sessionID, playlistID, linesTotal)
	job.SetID(id)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	job.SetStatus(status)
	job.SetTracksInserted(tracksInserted)
	job.SetTracksSkipped(tracksSkipped)
	job.SetErrorMessage(errorMessage.String)
	job.SetStartedAt(timePtr(startedAt))
	job.SetCompletedAt(timePtr(completedAt))
	job.SetDeletedAt(timePtr(deletedAt))

	return job, nil
}
