package web

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/repositories"
	"github.com/desertthunder/ytbulk/internal/shared"
)

// SessionManager maps the signed session cookie to a row in the sessions table.
//
// The cookie only carries the session ID. Credentials never leave the server.
type SessionManager struct {
	repo   *repositories.SessionRepository
	codec  *securecookie.SecureCookie
	name   string
	maxAge time.Duration
	secure bool
}

// NewSessionManager signs cookies with a key derived from cfg.Key.
func NewSessionManager(repo *repositories.SessionRepository, cfg shared.SessionConfig) (*SessionManager, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("%w: session key is required", shared.ErrInvalidConfig)
	}
	name := cfg.CookieName
	if name == "" {
		name = "ytbulk_session"
	}
	maxAge := cfg.MaxAge()
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	hashKey := sha256.Sum256([]byte(cfg.Key))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(int(maxAge.Seconds()))

	return &SessionManager{repo: repo, codec: codec, name: name, maxAge: maxAge, secure: cfg.SecureCookie}, nil
}

// Load returns the live session named by the request cookie.
//
// A missing, forged or expired cookie, or a deleted session, yields [shared.ErrSessionNotFound].
func (m *SessionManager) Load(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return nil, fmt.Errorf("%w: no cookie", shared.ErrSessionNotFound)
	}

	var id string
	if err := m.codec.Decode(m.name, cookie.Value, &id); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSessionNotFound, err)
	}

	return m.repo.Get(id)
}

// Ensure returns the current session, starting a new one when there is none.
func (m *SessionManager) Ensure(w http.ResponseWriter, r *http.Request) (*models.Session, error) {
	session, err := m.Load(r)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, shared.ErrSessionNotFound) {
		return nil, err
	}

	session = models.NewSession(0, time.Now().Add(m.maxAge))
	if err := m.repo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := m.setCookie(w, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Save persists changes to the session's credentials.
func (m *SessionManager) Save(session *models.Session) error {
	return m.repo.Update(session)
}

// Destroy deletes the session row, discarding its credentials, and expires the cookie.
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	session, err := m.Load(r)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.repo.Delete(session.ID())
}

func (m *SessionManager) setCookie(w http.ResponseWriter, session *models.Session) error {
	value, err := m.codec.Encode(m.name, session.ID())
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt(),
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
