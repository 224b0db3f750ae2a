package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/repositories"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/desertthunder/ytbulk/internal/tasks"
)

const (
	stateBytes      = 32
	multipartMemory = 8 << 20
)

type homePage struct {
	Authenticated bool
}

type playlistsResponse struct {
	Playlists []models.Playlist `json:"playlists"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to the HTTP status reported to the browser.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrStateMissing),
		errors.Is(err, shared.ErrStateMismatch),
		errors.Is(err, shared.ErrStateExpired),
		errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTokenExchange),
		errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	page := homePage{}
	if session, err := a.sessions.Load(r); err == nil {
		page.Authenticated = session.Authenticated()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.tmpl.ExecuteTemplate(w, "index.html", page); err != nil {
		a.logger.Error("failed to render home page", "err", err)
	}
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.Ensure(w, r)
	if err != nil {
		a.logger.Error("failed to start session", "err", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	state, err := shared.RandomToken(stateBytes)
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	if err := a.states.Create(models.NewOAuthState(state, session.ID(), a.config.Session.StateTTL())); err != nil {
		a.logger.Error("failed to store oauth state", "err", err)
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, a.oauth.AuthURL(state), http.StatusFound)
}

// handleCallback consumes the state before looking at the code, so a forged callback never reaches Google.
func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.Load(r)
	if err != nil {
		http.Error(w, shared.ErrStateMismatch.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	if _, err := a.states.Consume(q.Get("state"), session.ID(), time.Now()); err != nil {
		a.logger.Warn("rejected oauth callback", "session_id", session.ID(), "err", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s", shared.ErrAuthFailed, q.Get("error"))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	creds, err := a.oauth.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("token exchange failed", "session_id", session.ID(), "err", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	session.SetCredentials(&creds)
	if err := a.sessions.Save(session); err != nil {
		a.logger.Error("failed to store credentials", "session_id", session.ID(), "err", err)
		http.Error(w, "failed to store credentials", http.StatusInternalServerError)
		return
	}

	a.logger.Info("signed in", "session_id", session.ID())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(w, r); err != nil {
		a.logger.Warn("failed to delete session", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// authorized loads the caller's session and requires a credential bundle.
func (a *App) authorized(r *http.Request) (*models.Session, error) {
	session, err := a.sessions.Load(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	if !session.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	return session, nil
}

// service builds a YouTube client from the session's bundle, refreshing it first.
//
// A refreshed bundle is written back to the session in place.
func (a *App) service(ctx context.Context, session *models.Session) (services.Service, error) {
	creds := *session.Credentials()
	ts := a.oauth.TokenSource(ctx, creds)

	tok, err := services.CurrentToken(ts)
	if err != nil {
		return nil, err
	}

	if services.Refreshed(creds, tok) {
		merged := services.Merge(creds, tok)
		session.SetCredentials(&merged)
		if err := a.sessions.Save(session); err != nil {
			a.logger.Warn("failed to persist refreshed credentials", "session_id", session.ID(), "err", err)
		}
	}

	return a.newService(ctx, services.Client(ctx, ts))
}

func (a *App) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	session, err := a.authorized(r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	svc, err := a.service(r.Context(), session)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	playlists, err := tasks.NewImportEngine(svc, a.logger).ListPlaylists(r.Context(), nil)
	if err != nil {
		a.logger.Error("failed to list playlists", "session_id", session.ID(), "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, shared.ErrNotAuthenticated) {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: playlists})
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	session, err := a.authorized(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var file io.Reader
	if f, _, err := r.FormFile("file"); err == nil {
		defer f.Close()
		file = f
	} else if !errors.Is(err, http.ErrMissingFile) {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}

	lines, err := tasks.GatherLines(file, r.FormValue("songList"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if len(lines) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
		return
	}

	playlistID := r.FormValue("playlist_id")
	if playlistID == "" {
		http.Error(w, "playlist_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := a.importContext(r.Context())
	defer cancel()

	svc, err := a.service(ctx, session)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for update := range progress {
			a.hub.Publish(session.ID(), Message{Type: update.Phase.String(), Payload: update})
		}
	}()

	engine := tasks.NewImportEngine(svc, a.logger.With("session_id", session.ID())).
		WithRecorder(repositories.NewImportRecorder(a.imports, session.ID()))
	_, err = engine.Import(ctx, progress, playlistID, lines)

	close(progress)
	<-forwarded

	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// importContext detaches the import from the client connection and bounds it by the import timeout.
func (a *App) importContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if timeout := a.config.Server.ImportTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (a *App) handleProgress(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.Load(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	a.hub.ServeWS(w, r, session.ID())
}
