// Package web implements the browser front end: Google sign-in, the playlist picker and bulk upload.
//
// # Routes
//
//	GET  /                home page (login link or the upload form)
//	GET  /login           starts the OAuth flow, 302 to Google
//	GET  /oauth2callback  validates state, exchanges the code, 302 to /
//	GET  /logout          ends the session
//	GET  /get_playlists   {"playlists":[{"id","title"}]} or {"error":...}
//	POST /upload          multipart: file, songList, playlist_id
//	GET  /ws/progress     websocket stream of the session's import progress
//	GET  /static/         embedded client script
//
// # State
//
// The browser only holds a signed cookie with the session ID. Credentials and OAuth state tokens
// live in sqlite (see [repositories.SessionRepository] and [repositories.StateRepository]),
// and every upload is recorded in the import history.
//
// # Imports
//
// An upload runs the sequential [tasks.ImportEngine] inside the request. The import context is
// detached from the client connection and bounded by the configured import timeout, so closing
// the tab does not stop a running import.
package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytbulk/internal/repositories"
	"github.com/desertthunder/ytbulk/internal/server"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

const defaultMaxUpload = 10 << 20

// ServiceFactory builds the YouTube client for an authorized HTTP client.
type ServiceFactory func(ctx context.Context, client *http.Client) (services.Service, error)

// Options configures an [App].
type Options struct {
	Config         *shared.Config
	DB             *sql.DB
	OAuth          *services.OAuthConfig
	ServiceFactory ServiceFactory // defaults to the YouTube Data API
	Logger         *log.Logger
}

// App holds the web front end's dependencies.
type App struct {
	config     *shared.Config
	oauth      *services.OAuthConfig
	newService ServiceFactory
	logger     *log.Logger

	sessions *SessionManager
	states   *repositories.StateRepository
	imports  *repositories.ImportRepository
	hub      *Hub
	tmpl     *template.Template

	cancel context.CancelFunc
}

// New wires an App and starts its progress hub. Call [App.Close] to stop it.
func New(opts Options) (*App, error) {
	if opts.Config == nil || opts.DB == nil || opts.OAuth == nil {
		return nil, fmt.Errorf("%w: web app needs config, database and oauth", shared.ErrMissingArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sessions, err := NewSessionManager(repositories.NewSessionRepository(opts.DB), opts.Config.Session)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	factory := opts.ServiceFactory
	if factory == nil {
		yt := opts.Config.YouTube
		factory = func(ctx context.Context, client *http.Client) (services.Service, error) {
			return services.NewYouTubeService(ctx, client, yt)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.With("component", "ws"))
	go hub.Run(ctx)

	return &App{
		config:     opts.Config,
		oauth:      opts.OAuth,
		newService: factory,
		logger:     logger,
		sessions:   sessions,
		states:     repositories.NewStateRepository(opts.DB),
		imports:    repositories.NewImportRepository(opts.DB),
		hub:        hub,
		tmpl:       tmpl,
		cancel:     cancel,
	}, nil
}

// Close stops the progress hub and disconnects websocket clients.
func (a *App) Close() {
	a.cancel()
}

// Handler returns the routed application wrapped in logging, recovery and rate limiting.
func (a *App) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(
		server.Recoverer(a.logger),
		server.RequestLogger(a.logger),
		server.RateLimit(server.NewLimiter(a.config.Server.RateLimit, a.config.Server.RateBurst)),
	)

	static, _ := fs.Sub(staticFiles, "static")

	r.HandleFunc(http.MethodGet, "/{$}", a.handleHome)
	r.HandleFunc(http.MethodGet, "/login", a.handleLogin)
	r.HandleFunc(http.MethodGet, "/oauth2callback", a.handleCallback)
	r.HandleFunc(http.MethodGet, "/logout", a.handleLogout)
	r.HandleFunc(http.MethodGet, "/get_playlists", a.handlePlaylists)
	r.HandleFunc(http.MethodPost, "/upload", a.handleUpload)
	r.HandleFunc(http.MethodGet, "/ws/progress", a.handleProgress)
	r.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	return r
}

// Purge removes expired sessions and OAuth states.
func (a *App) Purge(now time.Time) error {
	sessions, err := a.sessions.repo.PurgeExpired(now)
	if err != nil {
		return err
	}
	states, err := a.states.PurgeExpired(now)
	if err != nil {
		return err
	}
	if sessions+states > 0 {
		a.logger.Debug("purged expired rows", "sessions", sessions, "states", states)
	}
	return nil
}

func (a *App) maxUpload() int64 {
	if n := a.config.Server.MaxUploadBytes; n > 0 {
		return n
	}
	return defaultMaxUpload
}
