package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the [key.Binding]s for each view. Cursor movement and filtering belong to the playlist list.
type keyMap struct {
	pick    key.Binding
	confirm key.Binding
	cancel  key.Binding
	again   key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		pick:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add songs here")),
		confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "start import")),
		cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "choose another playlist")),
		again:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "import into another playlist")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.pick, k.quit}
}

func (k keyMap) confirmHelp() []key.Binding {
	return []key.Binding{k.confirm, k.cancel, k.quit}
}

func (k keyMap) resultHelp() []key.Binding {
	return []key.Binding{k.again, k.quit}
}
