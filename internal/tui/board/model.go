// Package board is the interactive terminal browser over the REST API: the
// same three views, search and paging as the web board, driven by keys.
package board

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/todolist"
)

// Source is the part of the API client the board needs.
type Source interface {
	ListTodos(q client.Query) (*client.TodoPage, error)
	ToggleTodo(id string) (*client.Todo, error)
	DeleteTodo(id string) error
}

// Model is the Bubble Tea model for the todo board.
type Model struct {
	src  Source
	lang string

	// Window dimensions
	Width  int
	Height int

	// Query state
	Tab    todolist.View
	Search string
	Page   int

	// Loaded data
	Todos      []client.Todo
	Total      int
	TotalPages int
	Cursor     int

	// UI state
	searching     bool
	input         textinput.Model
	pager         paginator.Model
	help          help.Model
	keys          keyMap
	confirmDelete *client.Todo
	Loading       bool
	Toast         string
	Err           string
}

// pageLoadedMsg carries a fetched page.
type pageLoadedMsg struct {
	page *client.TodoPage
	err  error
}

// actionDoneMsg reports a finished toggle or delete.
type actionDoneMsg struct {
	toast   string
	failKey string
	err     error
}

// NewModel creates a board model showing the all view.
func NewModel(src Source, lang string) Model {
	ti := textinput.New()
	ti.Placeholder = i18n.T(lang, "todos.search")
	ti.CharLimit = 100
	ti.Cursor.SetMode(cursor.CursorStatic)

	pg := paginator.New()
	pg.Type = paginator.Dots
	pg.PerPage = todolist.DefaultPerPage

	return Model{
		src:     src,
		lang:    lang,
		Tab:     todolist.ViewAll,
		Page:    1,
		input:   ti,
		pager:   pg,
		help:    help.New(),
		keys:    newKeyMap(),
		Loading: true,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.fetch()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case pageLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			m.Err = client.Describe(msg.err, m.lang)
			return m, nil
		}
		// deleting the last row of the last page leaves us past the end
		if msg.page.TotalPages > 0 && msg.page.Page > msg.page.TotalPages {
			m.Page = msg.page.TotalPages
			return m, m.fetch()
		}
		m.Err = ""
		m.Todos = msg.page.Data
		m.Total = msg.page.Total
		m.TotalPages = msg.page.TotalPages
		m.Page = max(msg.page.Page, 1)
		m.pager.SetTotalPages(m.Total)
		m.pager.Page = m.Page - 1
		if m.Cursor >= len(m.Todos) {
			m.Cursor = max(len(m.Todos)-1, 0)
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.Err = i18n.T(m.lang, msg.failKey, client.Describe(msg.err, m.lang))
			m.Toast = ""
			return m, nil
		}
		m.Toast = msg.toast
		m.Err = ""
		return m, m.fetch()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.confirmDelete != nil {
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.Cursor < len(m.Todos)-1 {
			m.Cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.NextView):
		return m.setView(nextView(m.Tab, 1))

	case key.Matches(msg, m.keys.PrevView):
		return m.setView(nextView(m.Tab, -1))

	case key.Matches(msg, m.keys.ViewAll):
		return m.setView(todolist.ViewAll)

	case key.Matches(msg, m.keys.ViewTodo):
		return m.setView(todolist.ViewPending)

	case key.Matches(msg, m.keys.ViewDone):
		return m.setView(todolist.ViewCompleted)

	case key.Matches(msg, m.keys.NextPage):
		if todolist.HasNext(m.Page, m.TotalPages) {
			m.Page++
			m.Cursor = 0
			return m, m.fetch()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if todolist.HasPrev(m.Page) {
			m.Page--
			m.Cursor = 0
			return m, m.fetch()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.Loading = true
		return m, m.fetch()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.input.SetValue(m.Search)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Toggle):
		if t := m.selected(); t != nil {
			return m, m.toggle(t.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if t := m.selected(); t != nil {
			todo := *t
			m.confirmDelete = &todo
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		m.Search = m.input.Value()
		m.Page = 1
		m.Cursor = 0
		return m, m.fetch()
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searching = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id := m.confirmDelete.ID
		m.confirmDelete = nil
		return m, m.delete(id)
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
		m.confirmDelete = nil
	}
	return m, nil
}

func (m Model) setView(v todolist.View) (tea.Model, tea.Cmd) {
	if v == m.Tab {
		return m, nil
	}
	m.Tab = v
	m.Page = 1
	m.Cursor = 0
	m.Loading = true
	return m, m.fetch()
}

func (m Model) selected() *client.Todo {
	if m.Cursor < 0 || m.Cursor >= len(m.Todos) {
		return nil
	}
	return &m.Todos[m.Cursor]
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool { return m.searching }

// ConfirmingDelete reports whether a delete is awaiting confirmation.
func (m Model) ConfirmingDelete() bool { return m.confirmDelete != nil }

func nextView(v todolist.View, step int) todolist.View {
	n := len(todolist.Views)
	for i, candidate := range todolist.Views {
		if candidate == v {
			return todolist.Views[((i+step)%n+n)%n]
		}
	}
	return todolist.ViewAll
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}
