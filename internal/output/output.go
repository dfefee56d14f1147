// Package output provides styled terminal output helpers for the CLI:
// status messages, todo rows and detail views, rendered with lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/taskboard/internal/client"
	"github.com/marcus/taskboard/internal/i18n"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	linkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeConflict     = "conflict"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeNetwork      = "network_error"
	ErrCodeNotLoggedIn  = "not_logged_in"
	ErrCodeFailed       = "failed"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Println(string(data))
}

// StatusBadge returns a status indicator with symbol, e.g. "○ Pending" or
// "✓ Completed", in lang.
func StatusBadge(completed bool, lang string) string {
	if completed {
		return completedStyle.Render("✓ " + i18n.T(lang, "todos.completed"))
	}
	return pendingStyle.Render("○ " + i18n.T(lang, "todos.pending"))
}

// Truncate shortens s to width terminal cells, ending in an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// FormatTodoShort formats a todo as one list row. titleWidth bounds the
// title column; zero leaves it untruncated.
func FormatTodoShort(t *client.Todo, lang string, titleWidth int) string {
	title := t.Title
	if titleWidth > 0 {
		title = Truncate(title, titleWidth)
	}
	if t.Completed {
		title = completedStyle.Render(title)
	}
	parts := []string{
		titleStyle.Render(t.ID),
		StatusBadge(t.Completed, lang),
		title,
		subtleStyle.Render(FormatTimeAgo(t.CreatedAt)),
	}
	return strings.Join(parts, "  ")
}

// FormatTodoLong formats a todo with its metadata and description.
// description is the already rendered description body.
func FormatTodoLong(t *client.Todo, lang, description, link string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", t.ID, t.Title)))
	sb.WriteString("\n")
	sb.WriteString(StatusBadge(t.Completed, lang))
	sb.WriteString("\n")
	sb.WriteString(subtleStyle.Render(fmt.Sprintf("%s: %s (%s)",
		i18n.T(lang, "todos.createdAt"), t.CreatedAt.Local().Format("Jan 2, 2006"), FormatTimeAgo(t.CreatedAt))))
	sb.WriteString("\n")

	if description != "" {
		sb.WriteString("\n")
		sb.WriteString(description)
		sb.WriteString("\n")
	}

	if link != "" {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s: %s\n", i18n.T(lang, "todos.share"), linkStyle.Render(link)))
	}

	return sb.String()
}

// FormatPageFooter summarizes a listing, e.g. "page 1/3 · 10 of 27 todos".
func FormatPageFooter(p *client.TodoPage, lang string) string {
	if p.Total == 0 {
		return subtleStyle.Render(i18n.T(lang, "todos.noTodos"))
	}
	return subtleStyle.Render(fmt.Sprintf("%d/%d · %s",
		p.Page, p.TotalPages, i18n.T(lang, "todos.showing", len(p.Data), p.Total)))
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
