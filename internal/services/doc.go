// Package services defines the [Service] interface and implements it for the YouTube Data API v3.
//
// # OAuth
//
// [OAuthConfig] wraps [oauth2.Config] with the Google endpoint and the youtube.force-ssl scope.
// It builds the consent URL (offline access, forced consent, incremental scopes), exchanges
// authorization codes for [models.Credentials] and produces refreshing token sources.
// Callers compare the token source's current token against the stored bundle with [Refreshed]
// and persist the result of [Merge] in place.
//
// # YouTube Implementation
//
// [YouTubeService] sends requests through an authorized [http.Client] using the generated
// google.golang.org/api/youtube/v3 client:
//   - playlists.list (mine=true, one page) for [YouTubeService.GetPlaylists]
//   - search.list (type=video, first result) for [YouTubeService.SearchTrack]
//   - playlistItems.insert (youtube#video resource) for [YouTubeService.AddTrack]
//
// The API base URL can be overridden with [shared.YouTubeConfig.Endpoint].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : HTTP 401 or a failed token refresh
//   - [shared.ErrPlaylistNotFound] : HTTP 404
//   - [shared.ErrTrackNotFound] : search returned no video
//   - [shared.ErrAPIRequest] : any other upstream failure
package services
