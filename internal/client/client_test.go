package client

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/taskboard/internal/api"
	"github.com/marcus/taskboard/internal/config"
	"github.com/marcus/taskboard/internal/store"
)

// newTestClient starts a real API server over a temp-dir store.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "taskboard.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.RateLimitAuth = 100000
	cfg.RateLimitRead = 100000
	cfg.RateLimitWrite = 100000
	srv, err := api.NewServer(cfg, st, api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL, "")
}

func registerAlice(t *testing.T, c *Client) *AuthResponse {
	t.Helper()
	resp, err := c.Register(Registration{
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	c.Token = resp.Token
	return resp
}

func TestHealth(t *testing.T) {
	c := newTestClient(t)
	resp, err := c.Health()
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %q", resp.Status)
	}
}

func TestAuthLifecycle(t *testing.T) {
	c := newTestClient(t)
	reg := registerAlice(t, c)
	if reg.Token == "" || reg.User.Username != "alice" {
		t.Fatalf("unexpected register response %+v", reg)
	}

	me, err := c.Me()
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != reg.User.ID {
		t.Fatalf("me returned %q, want %q", me.ID, reg.User.ID)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := c.Me(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}

	login, err := c.Login("alice", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.ExpiresAt == nil {
		t.Fatal("expected session expiry")
	}

	if _, err := c.Login("alice", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad password, got %v", err)
	}
}

func TestRegisterErrors(t *testing.T) {
	c := newTestClient(t)
	registerAlice(t, c)

	_, err := c.Register(Registration{Username: "alice", Email: "a2@example.com", Name: "Alice", Password: "secret123"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	_, err = c.Register(Registration{Username: "x", Email: "nope", Name: "B", Password: "1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "validation_failed" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Field("email") != "Invalid email address" {
		t.Fatalf("expected email field error, got %+v", apiErr.Fields)
	}
}

func TestTodoCRUD(t *testing.T) {
	c := newTestClient(t)
	registerAlice(t, c)

	created, err := c.CreateTodo("Buy milk", "Two litres of milk")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Completed {
		t.Fatal("new todo should be pending")
	}

	got, err := c.GetTodo(created.ID)
	if err != nil || got.Title != "Buy milk" {
		t.Fatalf("get: %+v, %v", got, err)
	}

	title := "Buy oat milk"
	updated, err := c.UpdateTodo(created.ID, TodoPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.Description != "Two litres of milk" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	toggled, err := c.ToggleTodo(created.ID)
	if err != nil || !toggled.Completed {
		t.Fatalf("toggle: %+v, %v", toggled, err)
	}

	if err := c.DeleteTodo(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetTodo(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTodosQuery(t *testing.T) {
	c := newTestClient(t)
	registerAlice(t, c)

	for _, title := range []string{"Walk the dog", "Water plants", "Pay the bills"} {
		if _, err := c.CreateTodo(title, "Something to do today"); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	page, err := c.ListTodos(Query{Search: "wa", PerPage: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.TotalPages != 2 || len(page.Data) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}

	page, err = c.ListTodos(Query{View: "completed"})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected no completed todos, got %d", page.Total)
	}

	if _, err := c.ListTodos(Query{View: "archived"}); err == nil {
		t.Fatal("expected error for unknown view")
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		err := error(&APIError{Status: tt.status})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v", tt.status, tt.want)
		}
	}
	if errors.Unwrap(&APIError{Status: http.StatusTeapot}) != nil {
		t.Error("unmapped status should not unwrap")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(&APIError{Status: 404}, "en"); got != "🔍 Resource not found." {
		t.Errorf("404: %q", got)
	}
	if got := Describe(&APIError{Status: 400, Message: "Title is required"}, "en"); got != "❌ Bad request: Title is required" {
		t.Errorf("400: %q", got)
	}
	if got := Describe(errors.New("boom"), "en"); got != "❌ Error: boom" {
		t.Errorf("plain: %q", got)
	}
	if Describe(nil, "en") != "" {
		t.Error("nil error should describe as empty")
	}
}

func TestNetworkErrorDescribed(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	_, err := c.Health()
	if err == nil {
		t.Fatal("expected connection error")
	}
	if got := Describe(err, "en"); !strings.Contains(got, "Network error") {
		t.Fatalf("expected network error text, got %q", got)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL, "").Health()
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
