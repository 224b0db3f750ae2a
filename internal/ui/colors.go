package ui

import "github.com/charmbracelet/lipgloss"

const (
	youtubeRed = "#CC0000"
	green      = "#04B575"
	red        = "#FF0000"
	orange     = "#FFA500"
	grey       = "#626262"
	white      = "#FFFFFF"
)

var styles = NewPalette()

// Palette holds the named [lipgloss.Style]s used by the views.
type Palette struct {
	title lipgloss.Style
	badge lipgloss.Style // playlist name on the import screen
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette() *Palette {
	return &Palette{
		title: NewBold(youtubeRed).MarginBottom(1),
		badge: NewBold(white).Background(lipgloss.Color(youtubeRed)).Padding(0, 1),
		ok:    NewBold(green),
		err:   NewBold(red),
		warn:  NewStyle(orange),
		help:  NewEm(grey),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
