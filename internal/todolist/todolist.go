// Package todolist composes the view filter, text search and pagination
// applied to a user's todo list.
package todolist

import (
	"fmt"
	"strings"

	"github.com/marcus/taskboard/internal/store"
)

// DefaultPerPage is the page size used when none is given.
const DefaultPerPage = 10

// View selects which todos a list shows.
type View string

const (
	ViewAll       View = "all"
	ViewPending   View = "pending"
	ViewCompleted View = "completed"
)

// Views lists every view in display order.
var Views = []View{ViewAll, ViewPending, ViewCompleted}

// ParseView parses a view name. The empty string means ViewAll.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewPending:
		return ViewPending, nil
	case ViewCompleted:
		return ViewCompleted, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Filter returns the todos visible in the given view.
func Filter(todos []*store.Todo, view View) []*store.Todo {
	if view == ViewAll || view == "" {
		return todos
	}
	wantCompleted := view == ViewCompleted
	out := make([]*store.Todo, 0, len(todos))
	for _, t := range todos {
		if t.Completed == wantCompleted {
			out = append(out, t)
		}
	}
	return out
}

// Search returns the todos whose title or description contains query,
// ignoring case. A blank query matches everything.
func Search(todos []*store.Todo, query string) []*store.Todo {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return todos
	}
	out := make([]*store.Todo, 0, len(todos))
	for _, t := range todos {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// Page is one page of a todo list.
type Page struct {
	Items      []*store.Todo `json:"data"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// Paginate slices out the requested 1-based page. A page past the end
// yields no items; Total and TotalPages still describe the full list.
func Paginate(todos []*store.Todo, page, perPage int) Page {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(todos)
	p := Page{
		Items:      []*store.Todo{},
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	start := (page - 1) * perPage
	if start >= total {
		return p
	}
	end := min(start+perPage, total)
	p.Items = todos[start:end]
	return p
}

// Query describes a list request.
type Query struct {
	View    View
	Search  string
	Page    int
	PerPage int
}

// Apply runs filter, search and pagination in that order.
func Apply(todos []*store.Todo, q Query) Page {
	return Paginate(Search(Filter(todos, q.View), q.Search), q.Page, q.PerPage)
}
