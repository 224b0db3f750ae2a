package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytbulk/internal/shared"
)

// Session is a browser session. It owns at most one credential bundle.
type Session struct {
	persisted
	credentials *Credentials
	expiresAt   time.Time
}

// NewSession creates a session that expires at expiresAt.
func NewSession(sequence int, expiresAt time.Time) *Session {
	return &Session{persisted: newPersisted(sequence), expiresAt: expiresAt.UTC()}
}

func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Credentials returns the stored bundle or nil when the user has not logged in.
func (s *Session) Credentials() *Credentials { return s.credentials }

// SetCredentials replaces the bundle; nil clears it.
func (s *Session) SetCredentials(c *Credentials) { s.credentials = c }

// Authenticated reports whether the session holds a credential bundle.
func (s *Session) Authenticated() bool { return s.credentials != nil }

// Expired reports whether the session is past its lifetime at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// Validate checks if the session's data is valid.
func (s *Session) Validate() error {
	if s.expiresAt.IsZero() {
		return fmt.Errorf("%w: session expiry is required", shared.ErrInvalidInput)
	}
	if s.credentials != nil {
		return s.credentials.Validate()
	}
	return nil
}

// OAuthState is a one-time anti-forgery token bound to the session that started the login.
type OAuthState struct {
	State     string
	SessionID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewOAuthState creates a state valid for ttl from now.
func NewOAuthState(state, sessionID string, ttl time.Duration) *OAuthState {
	now := time.Now().UTC()
	return &OAuthState{State: state, SessionID: sessionID, ExpiresAt: now.Add(ttl), CreatedAt: now}
}

// Expired reports whether the state is past its window at now.
func (s *OAuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
