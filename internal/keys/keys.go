package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the glow view.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Monitoring
	Toggle  key.Binding
	Refresh key.Binding
	Access  key.Binding

	// History
	Clear key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "pause/resume"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "check now"),
		),
		Access: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "re-check access"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Refresh, k.Access},
		{k.Clear, k.Help, k.Quit},
	}
}
