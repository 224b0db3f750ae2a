package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database with generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	creds, err := encodeCredentials(session.Credentials())
	if err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)
	session.SetSequence(sequence)

	query := `
		INSERT INTO sessions (id, sequence, credentials, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, creds, session.ExpiresAt(), session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a live session by ID.
//
// Deleted and expired sessions are reported as [shared.ErrSessionNotFound].
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, sequence, credentials, expires_at, created_at, updated_at, deleted_at
		FROM sessions
		WHERE id = ? AND deleted_at IS NULL
	`

	session, err := r.scan(r.db.QueryRow(query, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s expired", shared.ErrSessionNotFound, id)
	}

	return session, nil
}

// Update persists the session's credentials and expiry
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	creds, err := encodeCredentials(session.Credentials())
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET credentials = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, creds, session.ExpiresAt(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return affected(result, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, session.ID()))
}

// Delete soft-deletes a session by ID and drops its stored credentials
func (r *SessionRepository) Delete(id string) error {
	now := time.Now().UTC()

	query := `
		UPDATE sessions
		SET deleted_at = ?, credentials = NULL
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return affected(result, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id))
}

// List retrieves sessions matching the given criteria, excluding soft-deleted sessions.
//
// Supported criteria: "active" (bool) limits to unexpired sessions, "authenticated" (bool) to sessions holding credentials.
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `
		SELECT id, sequence, credentials, expires_at, created_at, updated_at, deleted_at
		FROM sessions
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if active, ok := criteria["active"].(bool); ok && active {
		query += " AND expires_at > ?"
		args = append(args, time.Now().UTC())
	}

	if authed, ok := criteria["authenticated"].(bool); ok && authed {
		query += " AND credentials IS NOT NULL"
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// PurgeExpired soft-deletes every session whose lifetime ended before now
func (r *SessionRepository) PurgeExpired(now time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET deleted_at = ?, credentials = NULL
		WHERE expires_at <= ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now.UTC(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

func (r *SessionRepository) scan(row scanner) (*models.Session, error) {
	var (
		id          string
		sequence    int
		credentials sql.NullString
		expiresAt   time.Time
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &credentials, &expiresAt, &createdAt, &updatedAt, &deletedAt)
	if isNoRows(err) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session := models.NewSession(sequence, expiresAt)
	session.SetID(id)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	session.SetDeletedAt(timePtr(deletedAt))

	if credentials.Valid && credentials.String != "" {
		creds, err := models.DecodeCredentials([]byte(credentials.String))
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		session.SetCredentials(&creds)
	}

	return session, nil
}

func encodeCredentials(c *models.Credentials) (any, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.Encode()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
