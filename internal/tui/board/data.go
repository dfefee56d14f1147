package board

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/todolist"
)

// fetch loads the current view, search and page.
func (m Model) fetch() tea.Cmd {
	src := m.src
	q := client.Query{
		View:    string(m.Tab),
		Search:  m.Search,
		Page:    m.Page,
		PerPage: todolist.DefaultPerPage,
	}
	return func() tea.Msg {
		page, err := src.ListTodos(q)
		return pageLoadedMsg{page: page, err: err}
	}
}

func (m Model) toggle(id string) tea.Cmd {
	src, lang := m.src, m.lang
	return func() tea.Msg {
		todo, err := src.ToggleTodo(id)
		if err != nil {
			return actionDoneMsg{failKey: "toast.todo.toggleError", err: err}
		}
		if todo.Completed {
			return actionDoneMsg{toast: i18n.T(lang, "toast.todo.completed")}
		}
		return actionDoneMsg{toast: i18n.T(lang, "toast.todo.pending")}
	}
}

func (m Model) delete(id string) tea.Cmd {
	src, lang := m.src, m.lang
	return func() tea.Msg {
		if err := src.DeleteTodo(id); err != nil {
			return actionDoneMsg{failKey: "toast.todo.deleteError", err: err}
		}
		return actionDoneMsg{toast: i18n.T(lang, "toast.todo.deleted")}
	}
}
