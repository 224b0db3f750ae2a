package ui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/desertthunder/ytbulk/internal/tasks"
	tu "github.com/desertthunder/ytbulk/internal/testing"
)

func newTestModel(t *testing.T, lines ...string) (*Model, *tu.MockService) {
	t.Helper()
	mock := tu.NewMockService(
		map[string]string{"song a": "vid-a", "song b": "vid-b"},
		models.Playlist{ID: "PL1", Title: "Road trip"},
		models.Playlist{ID: "PL2", Title: "Focus"},
	)
	engine := tasks.NewImportEngine(mock, log.New(io.Discard))
	m := NewModel(context.Background(), engine, lines)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, mock
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// drive runs cmd and feeds resulting messages back into the model until the import completes.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 100; i++ {
		msg := cmd()
		_, cmd = m.Update(msg)
		if m.ViewState() == ResultView {
			return
		}
	}
	if m.ViewState() != ResultView {
		t.Fatal("import did not complete")
	}
}

func TestModel(t *testing.T) {
	t.Run("fetches playlists on init", func(t *testing.T) {
		m, _ := newTestModel(t, "song a")

		m.Update(m.fetchPlaylists()())

		if got := len(m.playlistList.Items()); got != 2 {
			t.Fatalf("expected 2 playlists, got %d", got)
		}
		if !strings.Contains(m.View(), "Road trip") {
			t.Errorf("expected playlist title in view, got %q", m.View())
		}
	})

	t.Run("fetch error quits", func(t *testing.T) {
		m, mock := newTestModel(t)
		mock.PlaylistsErr = shared.ErrAPIRequest

		_, cmd := m.Update(m.fetchPlaylists()())
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if !strings.Contains(m.View(), "Error") {
			t.Errorf("expected error view, got %q", m.View())
		}
	})

	t.Run("select, confirm and import", func(t *testing.T) {
		m, mock := newTestModel(t, "song a", "unknown", "song b")
		m.Update(m.fetchPlaylists()())

		m.Update(keyPress("enter"))
		if m.ViewState() != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.ViewState())
		}
		if !strings.Contains(m.View(), "Add 3 songs to 'Road trip'?") {
			t.Errorf("unexpected confirm view: %q", m.View())
		}

		_, cmd := m.Update(keyPress("y"))
		if m.ViewState() != ImportView {
			t.Fatalf("expected import view, got %v", m.ViewState())
		}
		drive(t, m, cmd)

		result, err := m.Result()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inserted != 2 || result.Skipped != 1 {
			t.Errorf("expected 2 inserted and 1 skipped, got %d and %d", result.Inserted, result.Skipped)
		}
		if got := len(mock.Inserts()); got != 2 {
			t.Errorf("expected 2 inserts, got %d", got)
		}

		view := m.View()
		for _, want := range []string{"Import Complete", "Added: 2", "Skipped: 1", "unknown"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected result view to contain %q, got %q", want, view)
			}
		}
	})

	t.Run("declining returns to the list", func(t *testing.T) {
		m, mock := newTestModel(t, "song a")
		m.Update(m.fetchPlaylists()())

		m.Update(keyPress("enter"))
		m.Update(keyPress("n"))

		if m.ViewState() != PlaylistListView {
			t.Errorf("expected playlist list, got %v", m.ViewState())
		}
		if len(mock.Searches()) != 0 {
			t.Error("expected no searches after declining")
		}
	})

	t.Run("restart after result", func(t *testing.T) {
		m, _ := newTestModel(t, "song a")
		m.Update(m.fetchPlaylists()())
		m.Update(keyPress("enter"))
		_, cmd := m.Update(keyPress("y"))
		drive(t, m, cmd)

		m.Update(keyPress("r"))
		if m.ViewState() != PlaylistListView {
			t.Errorf("expected playlist list, got %v", m.ViewState())
		}
		if result, _ := m.Result(); result != nil {
			t.Error("expected result to be cleared")
		}
	})
}
