package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the room list.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Engine operations.
	Insert     key.Binding
	LoadOlder  key.Binding
	Touch      key.Binding
	Sort       key.Binding
	Worker     key.Binding // toggle worker vs local sort
	ChunkSize  key.Binding // prompt for a new chunk size
	CopyRoomID key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Insert: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "insert rooms"),
	),
	LoadOlder: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "load older"),
	),
	Touch: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "touch random"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort now"),
	),
	Worker: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "worker on/off"),
	),
	ChunkSize: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "chunk size"),
	),
	CopyRoomID: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy id"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Insert, k.LoadOlder, k.Touch, k.Sort, k.Worker, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Insert, k.LoadOlder, k.Touch, k.Sort},
		{k.Worker, k.ChunkSize, k.CopyRoomID, k.Help, k.Quit},
	}
}
