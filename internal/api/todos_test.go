package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/todolist"
)

func newJSONRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func createTodoViaAPI(t *testing.T, srv *Server, token, title, desc string) store.Todo {
	t.Helper()
	w := doRequest(srv, "POST", "/v1/todos", token, map[string]string{"title": title, "description": desc})
	if w.Code != http.StatusCreated {
		t.Fatalf("create todo: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var todo store.Todo
	json.NewDecoder(w.Body).Decode(&todo)
	return todo
}

func TestCreateAndGetTodo(t *testing.T) {
	srv, st := newTestServer(t)
	_, token := createTestUser(t, st, "alice")

	todo := createTodoViaAPI(t, srv, token, "  Buy milk  ", "Two litres, semi-skimmed")
	if todo.ID == "" || todo.Title != "Buy milk" || todo.Completed {
		t.Fatalf("unexpected todo %+v", todo)
	}

	w := doRequest(srv, "GET", "/v1/todos/"+todo.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var got store.Todo
	json.NewDecoder(w.Body).Decode(&got)
	if got.ID != todo.ID || got.Description != "Two litres, semi-skimmed" {
		t.Fatalf("unexpected todo %+v", got)
	}
}

func TestCreateTodoValidation(t *testing.T) {
	srv, st := newTestServer(t)
	_, token := createTestUser(t, st, "alice")

	w := doRequest(srv, "POST", "/v1/todos", token, map[string]string{"title": "ab", "description": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	e := decodeError(t, w)
	if len(e.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", e.Fields)
	}
	if e.Fields[0].Message != "Title must be at least 3 characters" || e.Fields[1].Message != "Description is required" {
		t.Fatalf("unexpected messages %+v", e.Fields)
	}
}

func TestTodosAreOwnerScoped(t *testing.T) {
	srv, st := newTestServer(t)
	_, aliceToken := createTestUser(t, st, "alice")
	_, bobToken := createTestUser(t, st, "bob")

	todo := createTodoViaAPI(t, srv, aliceToken, "Private task", "Only alice can see this")

	for _, tc := range []struct{ method, path string }{
		{"GET", "/v1/todos/" + todo.ID},
		{"DELETE", "/v1/todos/" + todo.ID},
		{"POST", "/v1/todos/" + todo.ID + "/toggle"},
	} {
		w := doRequest(srv, tc.method, tc.path, bobToken, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s as other user: expected 404, got %d", tc.method, tc.path, w.Code)
		}
	}

	w := doRequest(srv, "GET", "/v1/todos", bobToken, nil)
	var page todolist.Page
	json.NewDecoder(w.Body).Decode(&page)
	if page.Total != 0 {
		t.Fatalf("bob should see no todos, got %d", page.Total)
	}
}

func TestUpdateTodo(t *testing.T) {
	srv, st := newTestServer(t)
	_, token := createTestUser(t, st, "alice")
	todo := createTodoViaAPI(t, srv, token, "Original", "Original description")

	w := doRequest(srv, "PATCH", "/v1/todos/"+todo.ID, token, map[string]any{"title": "Renamed", "completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got store.Todo
	json.NewDecoder(w.Body).Decode(&got)
	if got.Title != "Renamed" || !got.Completed || got.Description != "Original description" {
		t.Fatalf("unexpected todo %+v", got)
	}

	w = doRequest(srv, "PATCH", "/v1/todos/"+todo.ID, token, map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty patch: expected 400, got %d", w.Code)
	}
	w = doRequest(srv, "PATCH", "/v1/todos/"+todo.ID, token, map[string]any{"completed": "yes"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong type: expected 400, got %d", w.Code)
	}
	w = doRequest(srv, "PATCH", "/v1/todos/"+todo.ID, token, map[string]any{"description": "short"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short description: expected 400, got %d", w.Code)
	}
	w = doRequest(srv, "PATCH", "/v1/todos/missing", token, map[string]any{"completed": true})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404, got %d", w.Code)
	}
}

func TestToggleAndDeleteTodo(t *testing.T) {
	srv, st := newTestServer(t)
	_, token := createTestUser(t, st, "alice")
	todo := createTodoViaAPI(t, srv, token, "Toggle me", "Flip completion twice")

	w := doRequest(srv, "POST", "/v1/todos/"+todo.ID+"/toggle", token, nil)
	var got store.Todo
	json.NewDecoder(w.Body).Decode(&got)
	if !got.Completed {
		t.Fatal("expected completed after first toggle")
	}
	w = doRequest(srv, "POST", "/v1/todos/"+todo.ID+"/toggle", token, nil)
	json.NewDecoder(w.Body).Decode(&got)
	if got.Completed {
		t.Fatal("expected pending after second toggle")
	}

	w = doRequest(srv, "DELETE", "/v1/todos/"+todo.ID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doRequest(srv, "DELETE", "/v1/todos/"+todo.ID, token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestListTodosFilterSearchPaginate(t *testing.T) {
	srv, st := newTestServer(t)
	user, token := createTestUser(t, st, "alice")

	for i := 0; i < 12; i++ {
		title := fmt.Sprintf("Chore %02d", i)
		if i%4 == 0 {
			title = fmt.Sprintf("Report %02d", i)
		}
		todo, err := st.CreateTodo(user.ID, title, "Something to get done")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if i%2 == 0 {
			st.ToggleTodo(user.ID, todo.ID)
		}
	}

	list := func(query string) todolist.Page {
		t.Helper()
		w := doRequest(srv, "GET", "/v1/todos"+query, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list %s: expected 200, got %d: %s", query, w.Code, w.Body.String())
		}
		var page todolist.Page
		json.NewDecoder(w.Body).Decode(&page)
		return page
	}

	page := list("")
	if page.Total != 12 || page.TotalPages != 2 || len(page.Items) != 10 || page.PerPage != 10 {
		t.Fatalf("default list: %+v", page)
	}
	if !strings.HasSuffix(page.Items[0].Title, "11") {
		t.Fatalf("expected newest first, got %q", page.Items[0].Title)
	}

	page = list("?page=2")
	if len(page.Items) != 2 || page.Page != 2 {
		t.Fatalf("page 2: %+v", page)
	}

	page = list("?view=completed")
	if page.Total != 6 {
		t.Fatalf("completed: expected 6, got %d", page.Total)
	}

	// completed are even indexes; reports are 0, 4, 8
	page = list("?view=completed&search=REPORT&limit=2")
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("completed reports: %+v", page)
	}

	page = list("?view=pending&search=report")
	if page.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("pending reports: %+v", page)
	}

	page = list("?page=9")
	if len(page.Items) != 0 || page.Total != 12 {
		t.Fatalf("past end: %+v", page)
	}

	for _, bad := range []string{"?view=archived", "?page=0", "?page=x", "?limit=1000"} {
		w := doRequest(srv, "GET", "/v1/todos"+bad, token, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", bad, w.Code)
		}
	}
}
