package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/taskboard/internal/config"
	"github.com/marcus/taskboard/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.RateLimitAuth = 100000
	cfg.RateLimitRead = 100000
	cfg.RateLimitWrite = 100000
	return cfg
}

// newTestServer creates a Server backed by a temp-dir database.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	return newTestServerWithConfig(t, nil)
}

// newTestServerWithConfig creates a test server with a custom config modifier.
func newTestServerWithConfig(t *testing.T, modCfg func(*config.Config), opts ...Option) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "taskboard.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := testConfig()
	if modCfg != nil {
		modCfg(&cfg)
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	srv, err := NewServer(cfg, st, opts...)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv, st
}

// createTestUser creates a user and session, returning the user and bearer token.
func createTestUser(t *testing.T, st *store.Store, username string) (*store.User, string) {
	t.Helper()
	user, err := st.CreateUser(store.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Name:     "Test " + username,
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := st.CreateSession(user.ID, "test", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return user, token
}

func doRequest(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, w.Body.String())
	}
	return resp.Error
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestHealthReportsClosedDB(t *testing.T) {
	srv, st := newTestServer(t)
	st.Close()

	w := doRequest(srv, "GET", "/healthz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Fatalf("expected inbound request id to be reused, got %q", got)
	}
}

func TestRequestIDRejectsUnsafeValues(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "not a safe id")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	got := w.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a generated uuid, got %q", got)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	web := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "page")
	})
	srv, _ := newTestServerWithConfig(t, nil, WithWeb(web), WithLogger(logger))

	doRequest(srv, "GET", "/v1/todos", "", nil)
	doRequest(srv, "GET", "/pending", "", nil)

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if line["msg"] == "req" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 access log lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["surface"] != "api" || lines[0]["status"] != float64(401) || lines[0]["rid"] == "" {
		t.Errorf("unexpected api line %v", lines[0])
	}
	if lines[1]["surface"] != "web" || lines[1]["bytes"] != float64(4) {
		t.Errorf("unexpected web line %v", lines[1])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	_, token := createTestUser(t, st, "metrics")

	doRequest(srv, "GET", "/v1/todos", "", nil)
	doRequest(srv, "POST", "/v1/todos", token, map[string]string{
		"title": "Write tests", "description": "Cover the metrics endpoint",
	})

	w := doRequest(srv, "GET", "/metricz", "", nil)
	var snap MetricsSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Requests < 3 {
		t.Fatalf("expected at least 3 requests, got %d", snap.Requests)
	}
	if snap.ClientErrors != 1 {
		t.Fatalf("expected 1 client error, got %d", snap.ClientErrors)
	}
	if snap.TodosCreated != 1 {
		t.Fatalf("expected 1 todo created, got %d", snap.TodosCreated)
	}
}

func TestUnknownV1RouteIsJSON404(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, "GET", "/v1/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeNotFound {
		t.Fatalf("expected not_found, got %q", e.Code)
	}
}

func TestWebHandlerMounted(t *testing.T) {
	web := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "web:"+r.URL.Path)
	})
	srv, _ := newTestServerWithConfig(t, nil, WithWeb(web))

	w := doRequest(srv, "GET", "/pending", "", nil)
	if w.Body.String() != "web:/pending" {
		t.Fatalf("expected web handler, got %q", w.Body.String())
	}
	// API routes still win
	w = doRequest(srv, "GET", "/healthz", "", nil)
	if !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("healthz shadowed by web handler: %q", w.Body.String())
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), recoveryMiddleware)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeInternal {
		t.Fatalf("expected internal, got %q", e.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	srv, st := newTestServer(t)
	_, token := createTestUser(t, st, "big")

	body := `{"title":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	w := doRequest(srv, "POST", "/v1/todos", token, body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestCleanup(t *testing.T) {
	srv, st := newTestServerWithConfig(t, func(c *config.Config) {
		c.RateLimitEventRetention = config.Duration(time.Nanosecond)
	})
	user, _ := createTestUser(t, st, "cleaner")
	if _, _, err := st.CreateSession(user.ID, "short", time.Nanosecond); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := st.InsertRateLimitEvent("", "10.0.0.1", "auth"); err != nil {
		t.Fatalf("insert rate limit event: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	res := srv.Cleanup()
	if res.Sessions != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", res.Sessions)
	}
	if res.RateLimitEvents != 1 {
		t.Fatalf("expected 1 rate limit event removed, got %d", res.RateLimitEvents)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	addr, err := srv.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
