package models

// Playlist is a reference to one of the user's YouTube playlists.
type Playlist struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Track is the video chosen for a song request line.
type Track struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Channel string `json:"channel,omitempty"`
}
