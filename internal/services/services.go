// package services defines interface Service for interacting with the YouTube Data API
package services

import (
	"context"

	"github.com/desertthunder/ytbulk/internal/models"
)

// Service defines the operations the importer needs from a video platform.
type Service interface {
	// GetPlaylists retrieves one page of playlists owned by the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// SearchTrack returns the first video matching query.
	// Returns [shared.ErrTrackNotFound] when the search yields nothing.
	SearchTrack(ctx context.Context, query string) (*models.Track, error)

	// AddTrack appends videoID to the end of playlistID.
	AddTrack(ctx context.Context, playlistID, videoID string) error

	// Name returns the name of the service
	Name() string
}
