package output

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/taskboard/internal/client"
)

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{30 * time.Minute, "30m ago"},
		{time.Hour, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{6 * 24 * time.Hour, "6d ago"},
	}

	for _, tc := range tests {
		tm := time.Now().Add(-tc.duration)
		if got := FormatTimeAgo(tm); got != tc.expected {
			t.Errorf("FormatTimeAgo(-%v) = %q, want %q", tc.duration, got, tc.expected)
		}
	}
}

func TestFormatTimeAgoDate(t *testing.T) {
	tm := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if got := FormatTimeAgo(tm); got != "2024-03-05" {
		t.Errorf("FormatTimeAgo(old) = %q, want 2024-03-05", got)
	}
}

func TestStatusBadge(t *testing.T) {
	if got := ansi.Strip(StatusBadge(true, "en")); got != "✓ Completed" {
		t.Errorf("completed badge = %q", got)
	}
	if got := ansi.Strip(StatusBadge(false, "en")); got != "○ Pending" {
		t.Errorf("pending badge = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	got := Truncate("a much longer title than fits", 10)
	if ansi.StringWidth(got) > 10 || !strings.HasSuffix(got, "…") {
		t.Errorf("Truncate(long) = %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Errorf("Truncate(width 0) = %q", got)
	}
}

func TestFormatTodoShort(t *testing.T) {
	todo := &client.Todo{ID: "abc", Title: "Buy milk and bread", CreatedAt: time.Now()}
	got := ansi.Strip(FormatTodoShort(todo, "en", 8))
	if !strings.HasPrefix(got, "abc") {
		t.Errorf("expected id first, got %q", got)
	}
	if !strings.Contains(got, "○ Pending") || !strings.Contains(got, "just now") {
		t.Errorf("missing status or age: %q", got)
	}
	if strings.Contains(got, "Buy milk and bread") {
		t.Errorf("title should be truncated: %q", got)
	}
}

func TestFormatTodoLong(t *testing.T) {
	todo := &client.Todo{ID: "abc", Title: "Buy milk", Completed: true, CreatedAt: time.Now()}
	got := ansi.Strip(FormatTodoLong(todo, "en", "Two litres", "https://todo.com/task/abc/edit"))
	for _, want := range []string{"abc: Buy milk", "✓ Completed", "Created at:", "Two litres", "Share link: https://todo.com/task/abc/edit"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTodoLong missing %q in %q", want, got)
		}
	}

	got = ansi.Strip(FormatTodoLong(todo, "en", "", ""))
	if strings.Contains(got, "Share link") {
		t.Errorf("no link expected: %q", got)
	}
}

func TestFormatPageFooter(t *testing.T) {
	got := ansi.Strip(FormatPageFooter(&client.TodoPage{Data: make([]client.Todo, 10), Page: 1, TotalPages: 3, Total: 27}, "en"))
	if got != "1/3 · 10 of 27 todos" {
		t.Errorf("footer = %q", got)
	}
	got = ansi.Strip(FormatPageFooter(&client.TodoPage{}, "en"))
	if got != "No todos found" {
		t.Errorf("empty footer = %q", got)
	}
}

func TestIndentString(t *testing.T) {
	if got := IndentString("a\nb", 2); got != "  a\n  b" {
		t.Errorf("IndentString = %q", got)
	}
	if got := IndentString("", 4); got != "" {
		t.Errorf("IndentString(empty) = %q", got)
	}
}

func TestRenderMarkdownWithWidth(t *testing.T) {
	out, err := RenderMarkdownWithWidth("", 40)
	if err != nil || out != "" {
		t.Fatalf("empty input: %q, %v", out, err)
	}
	out, err = RenderMarkdownWithWidth("Some **bold** words", 40)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(ansi.Strip(out), "bold") {
		t.Fatalf("rendered output lost text: %q", out)
	}
}
