package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Cursor
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	ShiftUp    key.Binding
	ShiftDown  key.Binding
	ShiftLeft  key.Binding
	ShiftRight key.Binding
	Home       key.Binding
	End        key.Binding
	PageUp     key.Binding
	PageDown   key.Binding

	// Selection
	Toggle      key.Binding
	RangeToggle key.Binding
	DeleteMark  key.Binding
	DeleteMode  key.Binding
	Enter       key.Binding
	SelectAll   key.Binding
	DeselectAll key.Binding
	LoadMore    key.Binding

	// Workflow
	Next     key.Binding
	Previous key.Binding
	View1    key.Binding
	View2    key.Binding
	View3    key.Binding
	Modify   key.Binding
	Reload   key.Binding

	// Actions
	Filter key.Binding
	Jump   key.Binding
	Help   key.Binding
	Escape key.Binding
	Quit   key.Binding

	// Confirmations
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Cursor
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "right"),
		),
		ShiftUp: key.NewBinding(
			key.WithKeys("shift+up", "K"),
			key.WithHelp("⇧↑", "extend up"),
		),
		ShiftDown: key.NewBinding(
			key.WithKeys("shift+down", "J"),
			key.WithHelp("⇧↓", "extend down"),
		),
		ShiftLeft: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("⇧←", "extend left"),
		),
		ShiftRight: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("⇧→", "extend right"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first photo"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last photo"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "page down"),
		),

		// Selection
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		RangeToggle: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "select range"),
		),
		DeleteMark: key.NewBinding(
			key.WithKeys("x", "ctrl+@"),
			key.WithHelp("x", "mark for delete"),
		),
		DeleteMode: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete mode"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open/select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		DeselectAll: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "clear selection"),
		),
		LoadMore: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "load more"),
		),

		// Workflow
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next step"),
		),
		Previous: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous step"),
		),
		View1: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "view my photos"),
		),
		View2: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "view retouch"),
		),
		View3: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "view tablo"),
		),
		Modify: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "request modification"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),

		// Actions
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Jump: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "jump to file"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back/close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),

		// Confirmations
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
