package shared

import "errors"

var (
	// Configuration errors
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExchange    = errors.New("token exchange failed")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrStateMissing     = errors.New("missing state parameter")
	ErrStateMismatch    = errors.New("state parameter mismatch")
	ErrStateExpired     = errors.New("state parameter expired")
	ErrSessionNotFound  = errors.New("session not found")

	// API and service errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrTrackNotFound      = errors.New("track not found")
	ErrNotFound           = errors.New("record not found")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)
