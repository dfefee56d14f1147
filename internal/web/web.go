// Package web serves the browser front end: login and registration pages
// and the todo board with its URL-addressed dialogs.
package web

import (
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/marcus/taskboard/internal/route"
	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/todolist"
)

// Options configures the web handler.
type Options struct {
	// BaseURL prefixes share links. Empty resolves through route.BaseURL.
	BaseURL       string
	Dev           bool
	AllowSignup   bool
	SecureCookies bool
	SessionTTL    time.Duration
	Logger        *slog.Logger
}

// Handler is the browser front end.
type Handler struct {
	store  *store.Store
	opts   Options
	logger *slog.Logger
	pages  map[string]*template.Template
	router *mux.Router
}

// New builds the web handler and its routes.
func New(st *store.Store, opts Options) (*Handler, error) {
	if st == nil {
		return nil, errors.New("web: store is required")
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	opts.BaseURL = route.BaseURL(opts.BaseURL, opts.Dev)
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{
		store:  st,
		opts:   opts,
		logger: logger,
		pages:  pages,
	}
	h.router = h.routes()
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/login", h.handleLoginPage).Methods("GET")
	r.HandleFunc("/login", h.handleLogin).Methods("POST")
	r.HandleFunc("/register", h.handleRegisterPage).Methods("GET")
	r.HandleFunc("/register", h.handleRegister).Methods("POST")
	r.HandleFunc("/logout", h.handleLogout).Methods("POST")
	r.HandleFunc("/lang", h.handleLang).Methods("GET")

	for _, view := range todolist.Views {
		list := route.ViewPath(view)
		prefix := route.Prefix(view)

		r.HandleFunc(list, h.authed(h.handleBoard)).Methods("GET")
		if prefix != "" {
			r.HandleFunc(prefix+"/", h.authed(h.handleBoard)).Methods("GET")
		}
		r.HandleFunc(prefix+"/task/create", h.authed(h.handleBoard)).Methods("GET")
		r.HandleFunc(prefix+"/task/create", h.authed(h.handleCreate)).Methods("POST")
		r.HandleFunc(prefix+"/task/{id}/edit", h.authed(h.handleBoard)).Methods("GET")
		r.HandleFunc(prefix+"/task/{id}/edit", h.authed(h.handleEdit)).Methods("POST")
		r.HandleFunc(prefix+"/task/{id}/delete", h.authed(h.handleBoard)).Methods("GET")
		r.HandleFunc(prefix+"/task/{id}/delete", h.authed(h.handleDelete)).Methods("POST")
		r.HandleFunc(prefix+"/task/{id}/toggle", h.authed(h.handleToggle)).Methods("POST")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
	return r
}

// safeRedirect keeps redirects on this site: only absolute paths that are
// not protocol-relative are allowed. Browsers drop tabs and newlines and read
// a backslash as a slash, so any of those rejects the target.
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.ContainsAny(target, "\\") {
		return fallback
	}
	for i := 0; i < len(target); i++ {
		if target[i] < 0x20 || target[i] == 0x7f {
			return fallback
		}
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "//") {
		return fallback
	}
	return target
}
