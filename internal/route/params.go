package route

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/marcus/taskboard/internal/todolist"
)

// Params is the list state carried in the query string.
type Params struct {
	Page   int
	Search string
	Filter todolist.View
}

// DefaultParams is the state of a bare URL.
var DefaultParams = Params{Page: 1, Filter: todolist.ViewAll}

// ParseParams decodes list state from a query string. Missing or malformed
// values fall back to DefaultParams.
func ParseParams(q url.Values) Params {
	p := DefaultParams
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	p.Search = q.Get("search")
	if v, err := todolist.ParseView(q.Get("filter")); err == nil {
		p.Filter = v
	}
	return p
}

// Encode writes the non-default values only, so a default list has a clean
// URL.
func (p Params) Encode() string {
	q := url.Values{}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", p.Search)
	}
	if p.Page > 1 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Filter != "" && p.Filter != todolist.ViewAll {
		q.Set("filter", string(p.Filter))
	}
	return q.Encode()
}

// Update merges changes into query. Empty values delete the key.
func Update(query url.Values, changes map[string]string) url.Values {
	out := url.Values{}
	for k, v := range query {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range changes {
		if v == "" {
			out.Del(k)
			continue
		}
		out.Set(k, v)
	}
	return out
}

// Base URL defaults when none is configured.
const (
	DevBaseURL  = "http://localhost:3000"
	ProdBaseURL = "https://todo.com"
)

// BaseURL resolves the public origin used in shareable links: the configured
// value, then TASKBOARD_BASE_URL, then a dev or production default.
func BaseURL(configured string, dev bool) string {
	if configured != "" {
		return strings.TrimSuffix(configured, "/")
	}
	if env := os.Getenv("TASKBOARD_BASE_URL"); env != "" {
		return strings.TrimSuffix(env, "/")
	}
	if dev {
		return DevBaseURL
	}
	return ProdBaseURL
}
