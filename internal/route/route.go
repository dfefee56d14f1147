// Package route maps todo page URLs to view and modal state and builds the
// links that move between them. The URL is the only source of modal state:
// a page opened at /pending/task/abc/edit renders the pending list with the
// edit dialog for todo abc on top.
package route

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/marcus/taskboard/internal/todolist"
)

// Action is the modal a URL opens over a list view.
type Action string

const (
	ActionNone   Action = ""
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Context is the page state encoded in a URL path.
type Context struct {
	View   todolist.View
	Action Action
	TodoID string
}

// Modal reports whether the path opens a dialog.
func (c Context) Modal() bool {
	return c.Action != ActionNone
}

var (
	viewPrefixes = map[todolist.View]string{
		todolist.ViewAll:       "",
		todolist.ViewPending:   "/pending",
		todolist.ViewCompleted: "/completed",
	}

	pathPatterns = []struct {
		view todolist.View
		re   *regexp.Regexp
	}{
		{todolist.ViewCompleted, regexp.MustCompile(`^/completed(?:/task/create|/task/([^/]+)/(edit|delete))?/?$`)},
		{todolist.ViewPending, regexp.MustCompile(`^/pending(?:/task/create|/task/([^/]+)/(edit|delete))?/?$`)},
		{todolist.ViewAll, regexp.MustCompile(`^(?:/task/create|/task/([^/]+)/(edit|delete))?/?$`)},
	}

	todoIDPattern = regexp.MustCompile(`/task/([^/]+)(?:/edit|/delete)?`)
)

// Parse decodes a list or modal path. ok is false for paths that are not
// todo pages at all.
func Parse(path string) (ctx Context, ok bool) {
	for _, p := range pathPatterns {
		m := p.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		ctx.View = p.view
		switch {
		case m[2] != "":
			ctx.Action = Action(m[2])
			ctx.TodoID = m[1]
		case strings.HasSuffix(strings.TrimSuffix(path, "/"), "/task/create"):
			ctx.Action = ActionCreate
		}
		return ctx, true
	}
	return Context{}, false
}

// TodoIDFromPath extracts the todo id from any path containing /task/{id}.
// It returns "" when there is none; /task/create has no id.
func TodoIDFromPath(path string) string {
	m := todoIDPattern.FindStringSubmatch(path)
	if m == nil || m[1] == "create" {
		return ""
	}
	return m[1]
}

// Prefix returns the path prefix for a view: "" for all, "/pending" or
// "/completed" otherwise.
func Prefix(view todolist.View) string {
	return viewPrefixes[view]
}

// ViewPath returns the list path for a view.
func ViewPath(view todolist.View) string {
	if p := viewPrefixes[view]; p != "" {
		return p
	}
	return "/"
}

// ModalPath returns the path that opens a dialog over a view. id is ignored
// for ActionCreate and ActionNone.
func ModalPath(view todolist.View, action Action, id string) string {
	prefix := viewPrefixes[view]
	switch action {
	case ActionCreate:
		return prefix + "/task/create"
	case ActionEdit, ActionDelete:
		return prefix + "/task/" + url.PathEscape(id) + "/" + string(action)
	}
	return ViewPath(view)
}

// WithQuery appends the encoded list parameters to a path.
func WithQuery(path string, p Params) string {
	if q := p.Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

// TodoLink returns the absolute shareable link that opens a todo's edit
// dialog.
func TodoLink(baseURL, id string) string {
	return strings.TrimSuffix(baseURL, "/") + "/task/" + url.PathEscape(id) + "/edit"
}

// PageLink returns the link to a page of the current list, keeping the
// search and view.
func PageLink(path string, p Params, page int) string {
	p.Page = page
	return WithQuery(path, p)
}
