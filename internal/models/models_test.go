package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytbulk/internal/shared"
	"golang.org/x/oauth2"
)

func TestCredentials(t *testing.T) {
	t.Run("DecodeCredentials", func(t *testing.T) {
		tc := []struct {
			name    string
			data    string
			wantErr bool
		}{
			{name: "valid", data: `{"access_token":"a","refresh_token":"r","token_type":"Bearer","expiry":"2030-01-01T00:00:00Z","scopes":["s"]}`},
			{name: "minimal", data: `{"access_token":"a","expiry":"0001-01-01T00:00:00Z"}`},
			{name: "unknown field", data: `{"access_token":"a","client_secret":"x"}`, wantErr: true},
			{name: "missing access token", data: `{"refresh_token":"r"}`, wantErr: true},
			{name: "wrong token type", data: `{"access_token":"a","token_type":"MAC"}`, wantErr: true},
			{name: "trailing data", data: `{"access_token":"a"}{"access_token":"b"}`, wantErr: true},
			{name: "not json", data: `gAJ9cQAoWAUAAAB0b2tlbnEBWAEAAABhcQJ1Lg==`, wantErr: true},
			{name: "null", data: `null`, wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				_, err := DecodeCredentials([]byte(tt.data))
				if tt.wantErr {
					if !errors.Is(err, shared.ErrInvalidCredentials) {
						t.Errorf("expected ErrInvalidCredentials, got %v", err)
					}
					return
				}
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			})
		}
	})

	t.Run("Encode round trip", func(t *testing.T) {
		expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		creds := Credentials{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry, Scopes: []string{"s"}}

		data, err := creds.Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}

		decoded, err := DecodeCredentials(data)
		if err != nil {
			t.Fatalf("DecodeCredentials() error = %v", err)
		}
		if decoded.RefreshToken != "r" || !decoded.Expiry.Equal(expiry) || len(decoded.Scopes) != 1 {
			t.Errorf("unexpected decoded credentials %+v", decoded)
		}
	})

	t.Run("Encode rejects invalid", func(t *testing.T) {
		if _, err := (Credentials{}).Encode(); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("CredentialsFromToken", func(t *testing.T) {
		tok := (&oauth2.Token{AccessToken: "a", TokenType: "Bearer"}).WithExtra(map[string]any{"scope": "one two"})
		creds := CredentialsFromToken(tok, []string{"requested"})
		if len(creds.Scopes) != 2 || creds.Scopes[0] != "one" {
			t.Errorf("expected granted scopes, got %v", creds.Scopes)
		}

		creds = CredentialsFromToken(&oauth2.Token{AccessToken: "a"}, []string{"requested"})
		if len(creds.Scopes) != 1 || creds.Scopes[0] != "requested" {
			t.Errorf("expected requested scopes, got %v", creds.Scopes)
		}

		if creds.Token().AccessToken != "a" {
			t.Errorf("Token() lost the access token")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()
		if (Credentials{AccessToken: "a"}).Expired(now) {
			t.Error("zero expiry should never expire")
		}
		if !(Credentials{AccessToken: "a", Expiry: now.Add(-time.Minute)}).Expired(now) {
			t.Error("past expiry should be expired")
		}
	})
}

func TestSession(t *testing.T) {
	now := time.Now()
	s := NewSession(1, now.Add(time.Hour))

	if s.Authenticated() {
		t.Error("new session should not be authenticated")
	}
	if s.Expired(now) {
		t.Error("session should not be expired yet")
	}
	if !s.Expired(now.Add(2 * time.Hour)) {
		t.Error("session should be expired after its lifetime")
	}

	s.SetCredentials(&Credentials{})
	if err := s.Validate(); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials to fail validation, got %v", err)
	}

	s.SetCredentials(&Credentials{AccessToken: "a"})
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
	if !s.Authenticated() {
		t.Error("session with credentials should be authenticated")
	}
}

func TestOAuthState(t *testing.T) {
	st := NewOAuthState("tok", "sid", time.Minute)
	if st.Expired(time.Now()) {
		t.Error("fresh state should not be expired")
	}
	if !st.Expired(time.Now().Add(2 * time.Minute)) {
		t.Error("state should expire after its ttl")
	}
}

func TestImportJob(t *testing.T) {
	t.Run("lifecycle", func(t *testing.T) {
		job := NewImportJob(1, "sid", "PL1", 3)
		if err := job.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}

		start := time.Now()
		job.Start(start)
		if job.Status() != ImportStatusRunning {
			t.Errorf("expected running, got %s", job.Status())
		}

		job.Finish(start.Add(time.Second), 2, 1, nil)
		if job.Status() != ImportStatusCompleted || job.TracksInserted() != 2 || job.TracksSkipped() != 1 {
			t.Errorf("unexpected job state: %s %d %d", job.Status(), job.TracksInserted(), job.TracksSkipped())
		}
		if job.Duration() != time.Second {
			t.Errorf("expected 1s duration, got %s", job.Duration())
		}
	})

	t.Run("failed", func(t *testing.T) {
		job := NewImportJob(1, "sid", "PL1", 1)
		job.Start(time.Now())
		job.Finish(time.Now(), 0, 0, errors.New("quota exceeded"))
		if job.Status() != ImportStatusFailed || job.ErrorMessage() != "quota exceeded" {
			t.Errorf("unexpected job state: %s %q", job.Status(), job.ErrorMessage())
		}
	})

	t.Run("validation", func(t *testing.T) {
		tc := []struct {
			name string
			job  *ImportJob
		}{
			{name: "missing playlist", job: NewImportJob(1, "sid", "", 1)},
			{name: "missing session", job: NewImportJob(1, "", "PL1", 1)},
			{name: "negative lines", job: NewImportJob(1, "sid", "PL1", -1)},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.job.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})
		}

		job := NewImportJob(1, "sid", "PL1", 1)
		job.SetStatus("bogus")
		if err := job.Validate(); err == nil {
			t.Error("expected error for unknown status")
		}
	})
}
