package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytbulk/internal/models"
	"github.com/desertthunder/ytbulk/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	ImportView
	ResultView
)

const previewLines = 10

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.ImportEngine
	lines        []string
	width        int
	height       int
	playlistList list.Model
	selected     *models.Playlist
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.ImportResult
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model that imports lines through engine.
func NewModel(ctx context.Context, engine *tasks.ImportEngine, lines []string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = NewStyle(youtubeRed)

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		engine:       engine,
		lines:        lines,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:      s,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Result returns the finished import, or nil while it is still running.
func (m *Model) Result() (*tasks.ImportResult, error) { return m.result, m.err }

// Init initializes the TUI by fetching the user's playlists.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchPlaylists(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ImportView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.playlistList = list.New(playlistItems(data.playlists), list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "YouTube Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.doneChan)

	case MsgImportComplete:
		data := msg.data.(importComplete)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.pick):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				selected := pl.playlist
				m.selected = &selected
				m.view = ConfirmView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.cancel):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.confirm):
		m.view = ImportView
		return m, m.startImport()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.again):
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != PlaylistListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.engine.ListPlaylists(m.ctx, nil)
		return playlistsFetchedMsg(playlists, err)
	}
}

// startImport runs the import in the background. The outcome arrives on doneChan once progress is closed.
func (m *Model) startImport() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done

	ctx, engine, playlistID, lines := m.ctx, m.engine, m.selected.ID, m.lines
	go func() {
		result, err := engine.Import(ctx, progress, playlistID, lines)
		done <- importCompleteMsg(result, err)
		close(progress)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpView := m.help.ShortHelpView(m.keys.listHelp())
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Add %d songs to '%s'?", len(m.lines), m.selected.Title))

	var preview strings.Builder
	for i, line := range m.lines {
		if i == previewLines {
			preview.WriteString(styles.help.Render(fmt.Sprintf("  … and %d more", len(m.lines)-previewLines)))
			preview.WriteString("\n")
			break
		}
		fmt.Fprintf(&preview, "  %d. %s\n", i+1, line)
	}

	helpView := m.help.ShortHelpView(m.keys.confirmHelp())

	return fmt.Sprintf("%s\n%s\n%s", title, preview.String(), helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Importing into " + styles.badge.Render(m.selected.Title))

	var phase string
	switch m.progress.Phase {
	case tasks.SearchTracks:
		phase = fmt.Sprintf("Searching (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.InsertTrack:
		phase = styles.ok.Render(fmt.Sprintf("Added (%d/%d)", m.progress.Step, m.progress.Total))
	case tasks.SkipTrack:
		phase = styles.warn.Render(fmt.Sprintf("Skipped (%d/%d)", m.progress.Step, m.progress.Total))
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView(m.keys.resultHelp())

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Import failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	title := styles.ok.Render("✓ Import Complete!")
	if m.err != nil {
		title = styles.err.Render(fmt.Sprintf("Import stopped: %v", m.err))
	}

	info := fmt.Sprintf(
		"\nPlaylist: %s\nAdded: %d\nSkipped: %d\nProcessed: %d/%d",
		m.selected.Title,
		m.result.Inserted,
		m.result.Skipped,
		m.result.Processed(),
		m.result.Total,
	)

	var skipped string
	if m.result.Skipped > 0 {
		skipped = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("No match for %d lines:", m.result.Skipped)))
		for _, lr := range m.result.Lines {
			if lr.Status == models.ItemStatusSkipped {
				skipped += fmt.Sprintf("\n  • %s", lr.Query)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, skipped, helpView)
}
