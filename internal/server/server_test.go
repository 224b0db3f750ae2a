package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
)

type fakeExchanger struct {
	calls atomic.Int32
	creds models.Credentials
	err   error
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) (models.Credentials, error) {
	f.calls.Add(1)
	if f.err != nil {
		return models.Credentials{}, f.err
	}
	return f.creds, nil
}

func TestBasicRouter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	t.Run("matches method", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "ok" {
			t.Errorf("expected body ok, got %q", rec.Body.String())
		}
	})

	t.Run("GET route answers HEAD", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ping", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodPost, "/upload", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != http.MethodPost {
			t.Errorf("expected Allow POST, got %q", got)
		}
	})

	t.Run("one path, several methods", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/items", ok)
		r.HandleFunc(http.MethodPost, "/items", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

		for method, want := range map[string]int{
			http.MethodGet:    http.StatusOK,
			http.MethodPost:   http.StatusCreated,
			http.MethodDelete: http.StatusMethodNotAllowed,
		} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/items", nil))
			if rec.Code != want {
				t.Errorf("%s: expected %d, got %d", method, want, rec.Code)
			}
		}
	})

	t.Run("lists routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("get", "/a", ok)
		r.Handler(NewOAuthHandler(&fakeExchanger{}, "s", "/cb"))

		got := strings.Join(r.Routes(), ",")
		if got != "GET /a,/cb" {
			t.Errorf("expected GET /a,/cb, got %s", got)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handle(http.MethodGet, "/", ok)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})

	t.Run("registers Handler routes", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "s", "/cb")
		r := NewBasicRouter()
		r.Handler(h)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for missing state, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("RequestLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)

		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			io.WriteString(w, "short and stout")
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

		out := buf.String()
		for _, want := range []string{"method=GET", "path=/pot", "status=418", "bytes=15"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected log to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recoverer(log.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic value to be logged, got %q", buf.String())
		}
	})

	t.Run("RateLimit", func(t *testing.T) {
		h := RateLimit(NewLimiter(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

		if first.Code != http.StatusOK {
			t.Errorf("expected first request 200, got %d", first.Code)
		}
		if second.Code != http.StatusTooManyRequests {
			t.Errorf("expected second request 429, got %d", second.Code)
		}
		if second.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}
	})

	t.Run("NewLimiter disabled", func(t *testing.T) {
		if NewLimiter(0, 10) != nil {
			t.Error("expected nil limiter for zero rate")
		}
		if NewLimiter(5, 0) != nil {
			t.Error("expected nil limiter for zero burst")
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	tc := []struct {
		name      string
		query     string
		exchErr   error
		wantCode  int
		wantErr   error
		wantCalls int32
	}{
		{name: "success", query: "state=abc&code=xyz", wantCode: http.StatusOK, wantCalls: 1},
		{name: "missing state", query: "code=xyz", wantCode: http.StatusBadRequest, wantErr: shared.ErrStateMissing},
		{name: "mismatched state", query: "state=nope&code=xyz", wantCode: http.StatusBadRequest, wantErr: shared.ErrStateMismatch},
		{name: "provider error", query: "state=abc&error=access_denied", wantCode: http.StatusBadRequest, wantErr: shared.ErrAuthFailed},
		{
			name: "exchange failure", query: "state=abc&code=xyz", exchErr: shared.ErrTokenExchange,
			wantCode: http.StatusBadGateway, wantErr: shared.ErrTokenExchange, wantCalls: 1,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExchanger{creds: models.Credentials{AccessToken: "at", RefreshToken: "rt"}, err: tt.exchErr}
			h := NewOAuthHandler(ex, "abc", "/callback")

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if got := ex.calls.Load(); got != tt.wantCalls {
				t.Errorf("expected %d exchanges, got %d", tt.wantCalls, got)
			}

			result := <-h.Result()
			if tt.wantErr == nil {
				if result.Error() != nil {
					t.Fatalf("unexpected error: %v", result.Error())
				}
				if result.Credentials.AccessToken != "at" {
					t.Errorf("expected access token at, got %q", result.Credentials.AccessToken)
				}
				return
			}
			if !errors.Is(result.Error(), tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, result.Error())
			}
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		ex := &fakeExchanger{creds: models.Credentials{AccessToken: "at"}}
		h := NewOAuthHandler(ex, "abc", "")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=1", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=2", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
		if got := ex.calls.Load(); got != 1 {
			t.Errorf("expected a single exchange, got %d", got)
		}
	})

	t.Run("default route", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "abc", "")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected [/callback], got %v", routes)
		}
	})
}

func TestServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := NewHTTPServer(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "up")
	}), time.Minute)

	if srv.WriteTimeout != 2*time.Minute {
		t.Errorf("expected write timeout 2m, got %v", srv.WriteTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, srv, ln, log.New(io.Discard))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "up" {
		t.Errorf("expected body up, got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
