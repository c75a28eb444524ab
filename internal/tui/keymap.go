package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines global key bindings. Scrolling keys not listed here are
// handled by the transcript viewport.
type keyMap struct {
	Quit   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "close"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
	}
}
