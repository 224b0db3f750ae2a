package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// Scopes requested at login.
var Scopes = []string{youtube.YoutubeForceSslScope}

// OAuthConfig wraps the Google [oauth2.Config] used by both the web app and the CLI login.
type OAuthConfig struct {
	config *oauth2.Config
}

// NewOAuthConfig builds the OAuth client for redirectURI. An empty redirectURI uses the configured web callback.
func NewOAuthConfig(g shared.GoogleConfig, redirectURI string) (*OAuthConfig, error) {
	if g.ClientID == "" || g.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = g.RedirectURI
	}

	return &OAuthConfig{config: &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}}, nil
}

// WithEndpoint returns a copy that talks to a different authorization server.
func (o *OAuthConfig) WithEndpoint(ep oauth2.Endpoint) *OAuthConfig {
	cfg := *o.config
	cfg.Endpoint = ep
	return &OAuthConfig{config: &cfg}
}

// RedirectURL is the callback registered for this client.
func (o *OAuthConfig) RedirectURL() string {
	return o.config.RedirectURL
}

// AuthURL returns the consent page URL carrying state.
//
// Offline access and a forced consent prompt make Google issue a refresh token every time.
func (o *OAuthConfig) AuthURL(state string) string {
	return o.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for a credential bundle.
func (o *OAuthConfig) Exchange(ctx context.Context, code string) (models.Credentials, error) {
	if code == "" {
		return models.Credentials{}, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	creds := models.CredentialsFromToken(tok, o.config.Scopes)
	if err := creds.Validate(); err != nil {
		return models.Credentials{}, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}
	return creds, nil
}

// TokenSource returns a source that refreshes creds when the access token expires.
func (o *OAuthConfig) TokenSource(ctx context.Context, creds models.Credentials) oauth2.TokenSource {
	return o.config.TokenSource(ctx, creds.Token())
}

// Client returns an HTTP client authorized by ts.
func Client(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}

// Refreshed reports whether tok differs from the stored bundle and should be persisted.
func Refreshed(old models.Credentials, tok *oauth2.Token) bool {
	if tok == nil {
		return false
	}
	return tok.AccessToken != old.AccessToken || (tok.RefreshToken != "" && tok.RefreshToken != old.RefreshToken)
}

// Merge folds a refreshed token into the stored bundle, keeping the old refresh token when Google omits it.
func Merge(old models.Credentials, tok *oauth2.Token) models.Credentials {
	merged := models.CredentialsFromToken(tok, old.Scopes)
	if merged.RefreshToken == "" {
		merged.RefreshToken = old.RefreshToken
	}
	return merged
}

// CurrentToken forces a refresh when needed so an expired bundle fails before any API call.
func CurrentToken(ts oauth2.TokenSource) (*oauth2.Token, error) {
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", shared.ErrNotAuthenticated, shared.ErrRefreshFailed, err)
	}
	return tok, nil
}
