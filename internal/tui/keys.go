package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Search    key.Binding
	Sort      key.Binding
	Direction key.Binding
	Kind      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	Refresh   key.Binding
	Details   key.Binding
	Uninstall key.Binding
	Check     key.Binding
	Update    key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort key")),
		Direction: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
		Kind:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "gui/cli filter")),
		NextTab:   key.NewBinding(key.WithKeys("tab", "l"), key.WithHelp("tab", "next source")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab", "h"), key.WithHelp("s-tab", "prev source")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Details:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Uninstall: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "uninstall")),
		Check:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check updates")),
		Update:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "update")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("esc", "cancel")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
