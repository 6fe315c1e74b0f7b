package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the console's keyboard bindings.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Bottom     key.Binding
	AlertsOnly key.Binding
	Clear      key.Binding
	Quit       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "follow"),
		),
		AlertsOnly: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "alerts only"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
