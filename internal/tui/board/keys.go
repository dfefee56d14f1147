package board

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextView  key.Binding
	PrevView  key.Binding
	NextPage  key.Binding
	PrevPage  key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Search    key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ViewAll   key.Binding
	ViewTodo  key.Binding
	ViewDone  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		NextView: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		PrevView: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),
		NextPage: key.NewBinding(key.WithKeys("l", "right", "pgdown"), key.WithHelp("→/l", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("h", "left", "pgup"), key.WithHelp("←/h", "prev page")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Delete:   key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		Confirm:  key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Cancel:   key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n/esc", "cancel")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		ViewAll:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "all")),
		ViewTodo: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "pending")),
		ViewDone: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "completed")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextView, k.Toggle, k.Delete, k.Search, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage},
		{k.NextView, k.PrevView, k.ViewAll, k.ViewTodo, k.ViewDone},
		{k.Toggle, k.Delete, k.Search, k.Refresh},
		{k.Help, k.Quit},
	}
}
