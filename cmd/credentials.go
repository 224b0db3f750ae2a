package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
	"golang.org/x/oauth2"
)

// credentialsPath resolves [cli] credentials_path.
func (r *Runner) credentialsPath() (string, error) {
	path := r.config.CLI.CredentialsPath
	if path == "" {
		return "", fmt.Errorf("%w: cli credentials_path is empty", shared.ErrInvalidConfig)
	}
	return shared.ExpandHome(path)
}

// loadCredentials reads and strictly decodes the stored credential bundle.
func loadCredentials(path string) (models.Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Credentials{}, fmt.Errorf("%w: no credentials at %s", shared.ErrNotAuthenticated, path)
	} else if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	return models.DecodeCredentials(data)
}

// saveCredentials writes creds to path, readable only by the current user.
func saveCredentials(path string, creds models.Credentials) error {
	data, err := creds.Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// cliOAuth builds the OAuth client that redirects to the loopback login server.
func (r *Runner) cliOAuth() (*services.OAuthConfig, error) {
	g := r.config.Credentials.Google
	return services.NewOAuthConfig(g, g.CLIRedirectURI)
}

// youtube returns the injected service, or a YouTube client authorized by the stored credentials.
//
// An expired access token is refreshed first and the new bundle is written back.
func (r *Runner) youtube(ctx context.Context) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	path, err := r.credentialsPath()
	if err != nil {
		return nil, err
	}
	creds, err := loadCredentials(path)
	if err != nil {
		return nil, err
	}

	oauth, err := r.cliOAuth()
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	ts := oauth.TokenSource(ctx, creds)

	tok, err := services.CurrentToken(ts)
	if err != nil {
		return nil, err
	}
	if services.Refreshed(creds, tok) {
		r.logger.Debug("access token refreshed", "expiry", tok.Expiry)
		if err := saveCredentials(path, services.Merge(creds, tok)); err != nil {
			r.logger.Warn("failed to persist refreshed credentials", "error", err)
		}
	}

	return services.NewYouTubeService(ctx, services.Client(ctx, ts), r.config.YouTube)
}
