package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
)

// StateRepository stores one-time OAuth state tokens.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new [StateRepository] with the given database connection
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Create stores a freshly issued state
func (r *StateRepository) Create(state *models.OAuthState) error {
	if state.State == "" || state.SessionID == "" {
		return fmt.Errorf("%w: state and session id are required", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO oauth_states (state, session_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, state.State, state.SessionID, state.ExpiresAt.UTC(), state.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert oauth state: %w", err)
	}
	return nil
}

// Consume looks up and deletes state in one transaction, so a state can be redeemed at most once.
//
// Returns [shared.ErrStateMissing] when no such state exists, [shared.ErrStateExpired] when its window
// has passed and [shared.ErrStateMismatch] when it was issued to a different session.
func (r *StateRepository) Consume(state, sessionID string, now time.Time) (*models.OAuthState, error) {
	if state == "" {
		return nil, shared.ErrStateMissing
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var st models.OAuthState
	err = tx.QueryRow(
		"SELECT state, session_id, expires_at, created_at FROM oauth_states WHERE state = ?", state,
	).Scan(&st.State, &st.SessionID, &st.ExpiresAt, &st.CreatedAt)
	if isNoRows(err) {
		return nil, shared.ErrStateMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query oauth state: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM oauth_states WHERE state = ?", state); err != nil {
		return nil, fmt.Errorf("failed to delete oauth state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit oauth state: %w", err)
	}

	switch {
	case st.Expired(now):
		return nil, shared.ErrStateExpired
	case st.SessionID != sessionID:
		return nil, shared.ErrStateMismatch
	}

	return &st, nil
}

// PurgeExpired removes states whose window ended before now
func (r *StateRepository) PurgeExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM oauth_states WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge oauth states: %w", err)
	}
	return result.RowsAffected()
}
