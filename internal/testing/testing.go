// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
)

// Insert is one recorded playlist insert.
type Insert struct {
	PlaylistID string
	VideoID    string
}

// MockService is a test double for [services.Service].
//
// Results maps a search query to its video ID; queries without an entry yield [shared.ErrTrackNotFound].
// SearchErrs and AddErrs inject upstream failures per query or video ID.
type MockService struct {
	mu sync.Mutex

	Playlists    []models.Playlist
	PlaylistsErr error
	Results      map[string]string
	SearchErrs   map[string]error
	AddErrs      map[string]error

	searches []string
	inserts  []Insert
}

// NewMockService creates a mock with the given query → video ID results.
func NewMockService(results map[string]string, playlists ...models.Playlist) *MockService {
	return &MockService{Results: results, Playlists: playlists}
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return append([]models.Playlist(nil), m.Playlists...), nil
}

func (m *MockService) SearchTrack(ctx context.Context, query string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, query)

	if err, ok := m.SearchErrs[query]; ok {
		return nil, err
	}
	id, ok := m.Results[query]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, query)
	}
	return &models.Track{VideoID: id, Title: strings.ToUpper(query)}, nil
}

func (m *MockService) AddTrack(ctx context.Context, playlistID, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.AddErrs[videoID]; ok {
		return err
	}
	m.inserts = append(m.inserts, Insert{PlaylistID: playlistID, VideoID: videoID})
	return nil
}

// Searches returns every query searched so far, in order.
func (m *MockService) Searches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searches...)
}

// Inserts returns every successful insert so far, in order.
func (m *MockService) Inserts() []Insert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Insert(nil), m.inserts...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// FReader simulates a failure when reading an upload
type FReader struct{}

func (f *FReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
