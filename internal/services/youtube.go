// YouTube Data API v3 implementation of [Service]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const defaultPageSize int64 = 50

// YouTubeService implements the Service interface on top of the generated Data API client.
type YouTubeService struct {
	svc      *youtube.Service
	pageSize int64
}

// NewYouTubeService creates a service that sends every request through client.
//
// client must already carry the user's credentials, see [Client].
func NewYouTubeService(ctx context.Context, client *http.Client, cfg shared.YouTubeConfig) (*YouTubeService, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create youtube client: %v", shared.ErrServiceUnavailable, err)
	}

	pageSize := int64(cfg.PageSize)
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}

	return &YouTubeService{svc: svc, pageSize: pageSize}, nil
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// GetPlaylists retrieves the first page of the user's playlists.
//
// Calls playlists.list with part=snippet and mine=true.
func (y *YouTubeService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	resp, err := y.svc.Playlists.List([]string{"snippet"}).
		Mine(true).
		MaxResults(y.pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("list playlists", err)
	}

	playlists := make([]models.Playlist, 0, len(resp.Items))
	for _, item := range resp.Items {
		p := models.Playlist{ID: item.Id}
		if item.Snippet != nil {
			p.Title = item.Snippet.Title
		}
		playlists = append(playlists, p)
	}

	return playlists, nil
}

// SearchTrack returns the first video result for query.
//
// Calls search.list with part=snippet, type=video and maxResults=1.
func (y *YouTubeService) SearchTrack(ctx context.Context, query string) (*models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("search", err)
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		track := &models.Track{VideoID: item.Id.VideoId}
		if item.Snippet != nil {
			track.Title = item.Snippet.Title
			track.Channel = item.Snippet.ChannelTitle
		}
		return track, nil
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, query)
}

// AddTrack inserts videoID at the end of playlistID.
//
// Calls playlistItems.insert with a youtube#video resource.
func (y *YouTubeService) AddTrack(ctx context.Context, playlistID, videoID string) error {
	if playlistID == "" || videoID == "" {
		return fmt.Errorf("%w: playlist id and video id are required", shared.ErrInvalidInput)
	}

	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}

	if _, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return mapAPIError("insert playlist item", err)
	}
	return nil
}

// mapAPIError converts client errors into shared sentinels.
func mapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %v", shared.ErrNotAuthenticated, op, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %v", shared.ErrPlaylistNotFound, op, gerr.Message)
		}
		return fmt.Errorf("%w: %s (status %d): %v", shared.ErrAPIRequest, op, gerr.Code, gerr.Message)
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %w: %v", shared.ErrNotAuthenticated, shared.ErrRefreshFailed, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
