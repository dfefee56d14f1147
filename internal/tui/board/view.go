package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/todolist"
)

// MinWidth is the narrowest terminal the board lays out for.
const MinWidth = 30

func (m Model) t(key string, args ...any) string {
	return i18n.T(m.lang, key, args...)
}

func (m Model) renderView() string {
	var sections []string

	sections = append(sections, headerStyle.Render(m.t("todos.title")))
	sections = append(sections, m.renderTabs())

	if m.searching {
		sections = append(sections, m.input.View())
	} else if m.Search != "" {
		sections = append(sections, subtleStyle.Render(m.t("todos.searchButton")+": "+m.Search))
	}

	sections = append(sections, m.renderList())

	if m.TotalPages > 1 {
		nav := fmt.Sprintf("%s  %d/%d", m.pager.View(), m.Page, m.TotalPages)
		sections = append(sections, subtleStyle.Render(nav))
	}
	if m.Total > 0 {
		sections = append(sections, subtleStyle.Render(m.t("todos.showing", len(m.Todos), m.Total)))
	}

	if m.confirmDelete != nil {
		body := m.t("todos.confirmDelete") + "\n" + m.confirmDelete.Title + "\n\n" +
			subtleStyle.Render("y "+m.t("todos.delete")+" · n "+m.t("todos.cancel"))
		sections = append(sections, confirmStyle.Render(body))
	}

	switch {
	case m.Err != "":
		sections = append(sections, errorStyle.Render(m.Err))
	case m.Toast != "":
		sections = append(sections, toastStyle.Render(m.Toast))
	}

	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(todolist.Views))
	for i, v := range todolist.Views {
		label := fmt.Sprintf("%d %s", i+1, m.t("nav."+string(v)))
		if v == m.Tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderList() string {
	if m.Loading && len(m.Todos) == 0 {
		return subtleStyle.Render("…")
	}
	if len(m.Todos) == 0 {
		return subtleStyle.Render(m.t("todos.noTodos"))
	}

	width := m.Width
	if width < MinWidth {
		width = 80
	}
	titleWidth := width - 8

	var sb strings.Builder
	for i, todo := range m.Todos {
		check := "[ ]"
		if todo.Completed {
			check = "[x]"
		}
		title := ansi.Truncate(todo.Title, titleWidth, "…")
		if todo.Completed {
			title = doneStyle.Render(title)
		}
		line := check + " " + title
		if i == m.Cursor {
			line = cursorStyle.Render("›") + " " + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		if i < len(m.Todos)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
