package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/server"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 5 * time.Minute

// AuthLogin runs the OAuth flow against a loopback callback server and stores the resulting credentials.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oauth, err := r.cliOAuth()
	if err != nil {
		return err
	}

	path, err := r.credentialsPath()
	if err != nil {
		return err
	}

	creds, err := r.login(ctx, oauth, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := saveCredentials(path, creds); err != nil {
		return err
	}
	r.logger.Info("credentials saved", "path", path)

	return r.writePlain("✓ Signed in, credentials saved to %s\n", path)
}

// login serves the redirect URI until the callback arrives, ctx is cancelled or [loginTimeout] elapses.
func (r *Runner) login(ctx context.Context, oauth *services.OAuthConfig, openBrowser bool) (creds models.Credentials, err error) {
	redirect, err := url.Parse(oauth.RedirectURL())
	if err != nil || redirect.Host == "" {
		return creds, fmt.Errorf("%w: invalid cli_redirect_uri %q", shared.ErrInvalidConfig, oauth.RedirectURL())
	}

	state, err := shared.RandomToken(32)
	if err != nil {
		return creds, err
	}

	logger := shared.WithLogger(r.logger, "component", "login")
	handler := server.NewOAuthHandler(oauth, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Use(server.Recoverer(logger), server.RequestLogger(logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return creds, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	srv := server.NewHTTPServer(redirect.Host, router, 0)
	served := make(chan error, 1)
	go func() { served <- server.ServeListener(ctx, srv, ln, logger) }()
	defer func() {
		cancel()
		if serr := <-served; serr != nil {
			logger.Warn("callback server stopped with error", "error", serr)
		}
	}()

	authURL := oauth.AuthURL(state)
	r.writePlain("Open this URL to sign in:\n\n  %s\n\n", authURL)
	if openBrowser {
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return creds, err
		}
		return result.Credentials, nil
	case <-ctx.Done():
		return creds, fmt.Errorf("%w: login timed out or was cancelled", shared.ErrAuthFailed)
	}
}

// AuthStatus reports whether credentials are stored and when the access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	path, err := r.credentialsPath()
	if err != nil {
		return err
	}

	creds, err := loadCredentials(path)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return r.writePlain("✗ Not signed in (no credentials at %s)\n", path)
		}
		return err
	}

	now := time.Now()
	status := map[string]any{
		"path":          path,
		"expiry":        creds.Expiry,
		"expired":       creds.Expired(now),
		"refreshable":   creds.RefreshToken != "",
		"scopes":        creds.Scopes,
		"authenticated": !creds.Expired(now) || creds.RefreshToken != "",
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("✓ Signed in\n")
	r.writePlain("Credentials: %s\n", path)
	switch {
	case !creds.Expired(now):
		r.writePlain("Access token expires: %s\n", creds.Expiry.Local().Format(time.RFC1123))
	case creds.RefreshToken != "":
		r.writePlain("Access token expired, it will be refreshed on the next request\n")
	default:
		r.writePlain("Access token expired and no refresh token is stored, run 'ytbulk auth login'\n")
	}
	for _, scope := range creds.Scopes {
		r.writePlain("Scope: %s\n", scope)
	}
	return nil
}

// AuthLogout deletes the stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	path, err := r.credentialsPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r.writePlain("Already signed out\n")
		}
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	r.logger.Info("credentials removed", "path", path)
	return r.writePlain("✓ Signed out\n")
}
