package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/repositories"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
	tu "github.com/desertthunder/ytbulk/internal/testing"
)

type testEnv struct {
	app    *App
	db     *sql.DB
	srv    *httptest.Server
	client *http.Client
	mock   *tu.MockService

	tokenCalls    atomic.Int32
	refreshStatus atomic.Int32
}

type envOption func(cfg *shared.Config, mock *tu.MockService)

// newTestEnv starts the app against a fake token endpoint and a mock YouTube service.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	require.NoError(t, shared.RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	env := &testEnv{db: db}
	env.refreshStatus.Store(http.StatusOK)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := env.tokenCalls.Add(1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")

		body := map[string]any{
			"access_token": fmt.Sprintf("access-%d", n),
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			if status := int(env.refreshStatus.Load()); status != http.StatusOK {
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
				return
			}
		default:
			body["refresh_token"] = "refresh"
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := shared.DefaultConfig()
	cfg.Credentials.Google.ClientID = "client-id"
	cfg.Credentials.Google.ClientSecret = "client-secret"
	cfg.Session.Key = "test-session-key"
	cfg.Server.RateLimit = 0

	env.mock = tu.NewMockService(
		map[string]string{"song a": "vid-a", "song b": "vid-b", "song c": "vid-c"},
		models.Playlist{ID: "PL1", Title: "Road trip"},
		models.Playlist{ID: "PL2", Title: "Focus"},
	)

	for _, opt := range opts {
		opt(cfg, env.mock)
	}

	oauth, err := services.NewOAuthConfig(cfg.Credentials.Google, "")
	require.NoError(t, err)
	oauth = oauth.WithEndpoint(oauth2.Endpoint{AuthURL: tokenSrv.URL + "/auth", TokenURL: tokenSrv.URL + "/token"})

	app, err := New(Options{
		Config: cfg,
		DB:     db,
		OAuth:  oauth,
		ServiceFactory: func(ctx context.Context, client *http.Client) (services.Service, error) {
			return env.mock, nil
		},
		Logger: log.New(io.Discard),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	env.app = app

	env.srv = httptest.NewServer(app.Handler())
	t.Cleanup(env.srv.Close)
	env.client = env.newClient(t)

	return env
}

func (e *testEnv) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// startLogin hits /login and returns the state carried by the redirect to Google.
func (e *testEnv) startLogin(t *testing.T, c *http.Client) string {
	t.Helper()
	resp, _ := e.get(t, c, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func (e *testEnv) login(t *testing.T, c *http.Client) {
	t.Helper()
	state := e.startLogin(t, c)
	resp, _ := e.get(t, c, "/oauth2callback?code=good&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func (e *testEnv) session(t *testing.T) *models.Session {
	t.Helper()
	sessions, err := repositories.NewSessionRepository(e.db).List(map[string]any{"authenticated": true})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	return sessions[0]
}

func (e *testEnv) upload(t *testing.T, c *http.Client, fields map[string]string, file string) (*http.Response, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", "songs.txt")
		require.NoError(t, err)
		_, err = io.WriteString(fw, file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Anonymous", func(t *testing.T) {
		resp, body := env.get(t, env.client, "/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `href="/login"`)
		assert.NotContains(t, body, "upload-form")
	})

	t.Run("Signed in", func(t *testing.T) {
		env.login(t, env.client)
		_, body := env.get(t, env.client, "/")
		assert.Contains(t, body, "upload-form")
		assert.Contains(t, body, "/static/script.js")
	})

	t.Run("Static script", func(t *testing.T) {
		resp, body := env.get(t, env.client, "/static/script.js")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "/get_playlists")
	})

	t.Run("Unknown path", func(t *testing.T) {
		resp, _ := env.get(t, env.client, "/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, env.client, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := loc.Query()

	assert.True(t, strings.HasSuffix(loc.Path, "/auth"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Contains(t, q.Get("scope"), "youtube.force-ssl")
	assert.NotEmpty(t, q.Get("state"))
	assert.Equal(t, int32(0), env.tokenCalls.Load(), "login must not contact the token endpoint")

	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	assert.True(t, cookies[0].HttpOnly)
}

func TestCallback(t *testing.T) {
	t.Run("Valid code and state stores a usable bundle", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		assert.Equal(t, int32(1), env.tokenCalls.Load())

		session := env.session(t)
		require.NotNil(t, session.Credentials())
		assert.Equal(t, "access-1", session.Credentials().AccessToken)
		assert.Equal(t, "refresh", session.Credentials().RefreshToken)

		resp, _ := env.get(t, env.client, "/get_playlists")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	rejected := []struct {
		name  string
		query func(state string) string
	}{
		{name: "Missing state", query: func(string) string { return "code=good" }},
		{name: "Mismatched state", query: func(string) string { return "code=good&state=forged" }},
		{name: "Provider error without code", query: func(s string) string { return "error=access_denied&state=" + url.QueryEscape(s) }},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			state := env.startLogin(t, env.client)

			resp, _ := env.get(t, env.client, "/oauth2callback?"+tt.query(state))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, int32(0), env.tokenCalls.Load(), "no exchange may be attempted")
		})
	}

	t.Run("Replayed state", func(t *testing.T) {
		env := newTestEnv(t)
		state := env.startLogin(t, env.client)

		resp, _ := env.get(t, env.client, "/oauth2callback?code=good&state="+url.QueryEscape(state))
		require.Equal(t, http.StatusFound, resp.StatusCode)

		resp, _ = env.get(t, env.client, "/oauth2callback?code=again&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(1), env.tokenCalls.Load())
	})

	t.Run("State issued to another session", func(t *testing.T) {
		env := newTestEnv(t)
		state := env.startLogin(t, env.client)

		other := env.newClient(t)
		env.startLogin(t, other)

		resp, _ := env.get(t, other, "/oauth2callback?code=good&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(0), env.tokenCalls.Load())
	})

	t.Run("No session cookie", func(t *testing.T) {
		env := newTestEnv(t)
		state := env.startLogin(t, env.client)

		resp, _ := env.get(t, env.newClient(t), "/oauth2callback?code=good&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(0), env.tokenCalls.Load())
	})

	t.Run("Expired state", func(t *testing.T) {
		env := newTestEnv(t, func(c *shared.Config, _ *tu.MockService) { c.Session.StateTTLSeconds = -1 })
		state := env.startLogin(t, env.client)

		resp, body := env.get(t, env.client, "/oauth2callback?code=good&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, shared.ErrStateExpired.Error())
		assert.Equal(t, int32(0), env.tokenCalls.Load())
	})
}

func TestGetPlaylists(t *testing.T) {
	t.Run("Unauthenticated", func(t *testing.T) {
		env := newTestEnv(t)
		resp, body := env.get(t, env.client, "/get_playlists")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &payload))
		assert.NotEmpty(t, payload["error"])
	})

	t.Run("Forged cookie", func(t *testing.T) {
		env := newTestEnv(t)
		req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/get_playlists", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "ytbulk_session", Value: "not-signed"})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Returns every playlist", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		resp, body := env.get(t, env.client, "/get_playlists")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload struct {
			Playlists []models.Playlist `json:"playlists"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &payload))
		assert.Equal(t, []models.Playlist{{ID: "PL1", Title: "Road trip"}, {ID: "PL2", Title: "Focus"}}, payload.Playlists)
	})

	t.Run("Empty list encodes as array", func(t *testing.T) {
		env := newTestEnv(t, func(_ *shared.Config, m *tu.MockService) { m.Playlists = nil })
		env.login(t, env.client)

		_, body := env.get(t, env.client, "/get_playlists")
		assert.JSONEq(t, `{"playlists":[]}`, body)
	})

	t.Run("Upstream error", func(t *testing.T) {
		env := newTestEnv(t, func(_ *shared.Config, m *tu.MockService) {
			m.PlaylistsErr = fmt.Errorf("%w: quota exceeded", shared.ErrAPIRequest)
		})
		env.login(t, env.client)

		resp, body := env.get(t, env.client, "/get_playlists")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Contains(t, body, "quota exceeded")
	})

	t.Run("Expired bundle is refreshed and persisted", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		session := env.session(t)
		creds := *session.Credentials()
		creds.Expiry = time.Now().Add(-time.Hour)
		session.SetCredentials(&creds)
		require.NoError(t, repositories.NewSessionRepository(env.db).Update(session))

		resp, _ := env.get(t, env.client, "/get_playlists")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), env.tokenCalls.Load())

		refreshed := env.session(t).Credentials()
		assert.Equal(t, "access-2", refreshed.AccessToken)
		assert.Equal(t, "refresh", refreshed.RefreshToken, "refresh token is kept when Google omits it")
	})

	t.Run("Refresh failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)
		env.refreshStatus.Store(http.StatusBadRequest)

		session := env.session(t)
		creds := *session.Credentials()
		creds.Expiry = time.Now().Add(-time.Hour)
		session.SetCredentials(&creds)
		require.NoError(t, repositories.NewSessionRepository(env.db).Update(session))

		resp, _ := env.get(t, env.client, "/get_playlists")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestUpload(t *testing.T) {
	t.Run("Unauthenticated", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.upload(t, env.client, map[string]string{"playlist_id": "PL1", "songList": "song a"}, "")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, env.mock.Searches())
	})

	t.Run("Inserts matches in input order", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		resp, body := env.upload(t, env.client, map[string]string{
			"playlist_id": "PL1",
			"songList":    "song c\n\nunknown song\n  song a  ",
		}, "song b\n")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body)
		assert.Equal(t, []string{"song b", "song c", "unknown song", "song a"}, env.mock.Searches())
		assert.Equal(t, []tu.Insert{
			{PlaylistID: "PL1", VideoID: "vid-b"},
			{PlaylistID: "PL1", VideoID: "vid-c"},
			{PlaylistID: "PL1", VideoID: "vid-a"},
		}, env.mock.Inserts())
	})

	t.Run("Duplicate lines are independent", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		resp, _ := env.upload(t, env.client, map[string]string{"playlist_id": "PL2", "songList": "song a\nsong a"}, "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"song a", "song a"}, env.mock.Searches())
		assert.Len(t, env.mock.Inserts(), 2)
	})

	t.Run("Nothing to import", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		resp, body := env.upload(t, env.client, map[string]string{"songList": "  \n\n"}, "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body)
		assert.Empty(t, env.mock.Searches())
	})

	t.Run("Missing playlist", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		resp, _ := env.upload(t, env.client, map[string]string{"songList": "song a"}, "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Empty(t, env.mock.Searches())
	})

	t.Run("Upstream error stops the run", func(t *testing.T) {
		env := newTestEnv(t, func(_ *shared.Config, m *tu.MockService) {
			m.AddErrs = map[string]error{"vid-b": fmt.Errorf("%w: quota exceeded", shared.ErrAPIRequest)}
		})
		env.login(t, env.client)

		resp, _ := env.upload(t, env.client, map[string]string{"playlist_id": "PL1", "songList": "song a\nsong b\nsong c"}, "")

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, []tu.Insert{{PlaylistID: "PL1", VideoID: "vid-a"}}, env.mock.Inserts())
		assert.Equal(t, []string{"song a", "song b"}, env.mock.Searches())
	})

	t.Run("Records history", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, env.client)

		resp, _ := env.upload(t, env.client, map[string]string{"playlist_id": "PL1", "songList": "song a\nmissing"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		repo := repositories.NewImportRepository(env.db)
		jobs, err := repo.List(map[string]any{"session_id": env.session(t).ID()})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, models.ImportStatusCompleted, jobs[0].Status())
		assert.Equal(t, 1, jobs[0].TracksInserted())
		assert.Equal(t, 1, jobs[0].TracksSkipped())

		items, err := repo.Items(jobs[0].ID())
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, models.ItemStatusInserted, items[0].Status)
		assert.Equal(t, models.ItemStatusSkipped, items[1].Status)
	})

	t.Run("Too large", func(t *testing.T) {
		env := newTestEnv(t, func(c *shared.Config, _ *tu.MockService) { c.Server.MaxUploadBytes = 512 })
		env.login(t, env.client)

		resp, _ := env.upload(t, env.client, map[string]string{"playlist_id": "PL1"}, strings.Repeat("song a\n", 600))

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Empty(t, env.mock.Searches())
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, env.client)

	resp, _ := env.get(t, env.client, "/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = env.get(t, env.client, "/get_playlists")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	sessions, err := repositories.NewSessionRepository(env.db).List(map[string]any{"authenticated": true})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestStatusFor(t *testing.T) {
	tc := []struct {
		err  error
		want int
	}{
		{shared.ErrNotAuthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", shared.ErrSessionNotFound), http.StatusUnauthorized},
		{shared.ErrStateMismatch, http.StatusBadRequest},
		{shared.ErrStateExpired, http.StatusBadRequest},
		{shared.ErrPlaylistNotFound, http.StatusNotFound},
		{shared.ErrTokenExchange, http.StatusBadGateway},
		{shared.ErrAPIRequest, http.StatusBadGateway},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tc {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestImportContext(t *testing.T) {
	t.Run("outlives the request", func(t *testing.T) {
		app := &App{config: shared.DefaultConfig()}
		app.config.Server.ImportTimeoutSeconds = 60

		parent, cancel := context.WithCancel(context.Background())
		ctx, done := app.importContext(parent)
		defer done()
		cancel()

		assert.NoError(t, ctx.Err())
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})

	t.Run("no timeout configured", func(t *testing.T) {
		app := &App{config: shared.DefaultConfig()}
		app.config.Server.ImportTimeoutSeconds = 0

		ctx, done := app.importContext(context.Background())
		_, ok := ctx.Deadline()
		assert.False(t, ok)

		done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}
