package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/todolist"
	"github.com/marcus/taskboard/internal/validate"
)

// maxPerPage bounds the limit query parameter.
const maxPerPage = 100

type todoCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type todoUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// parseListQuery reads view, search, page and limit from the query string.
func parseListQuery(r *http.Request) (todolist.Query, error) {
	q := r.URL.Query()
	view, err := todolist.ParseView(q.Get("view"))
	if err != nil {
		return todolist.Query{}, err
	}
	out := todolist.Query{View: view, Search: q.Get("search"), Page: 1, PerPage: todolist.DefaultPerPage}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return todolist.Query{}, errors.New("page must be a positive integer")
		}
		out.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPerPage {
			return todolist.Query{}, errors.New("limit must be between 1 and 100")
		}
		out.PerPage = n
	}
	return out, nil
}

// handleListTodos handles GET /v1/todos.
func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	au := getUserFromContext(r.Context())
	todos, err := s.store.ListTodos(au.User.ID)
	if err != nil {
		logFor(r.Context()).Error("list todos", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, todolist.Apply(todos, query))
}

// handleCreateTodo handles POST /v1/todos.
func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoCreateRequest
	if !decodeBody(w, r, todoCreateSchema, &req) {
		return
	}
	if errs := validate.Todo(req.Title, req.Description); errs != nil {
		writeFieldErrors(w, ErrCodeValidation, errs)
		return
	}

	au := getUserFromContext(r.Context())
	todo, err := s.store.CreateTodo(au.User.ID, req.Title, req.Description)
	if err != nil {
		logFor(r.Context()).Error("create todo", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create todo")
		return
	}
	s.metrics.RecordTodoCreated()
	logFor(r.Context()).Info("todo created", "todo_id", todo.ID)
	writeJSON(w, http.StatusCreated, todo)
}

// handleGetTodo handles GET /v1/todos/{id}.
func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	au := getUserFromContext(r.Context())
	todo, err := s.store.GetTodo(au.User.ID, r.PathValue("id"))
	if err != nil {
		logFor(r.Context()).Error("get todo", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to get todo")
		return
	}
	if todo == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// handleUpdateTodo handles PATCH /v1/todos/{id}.
func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoUpdateRequest
	if !decodeBody(w, r, todoUpdateSchema, &req) {
		return
	}
	if errs := validate.TodoPatch(req.Title, req.Description); errs != nil {
		writeFieldErrors(w, ErrCodeValidation, errs)
		return
	}

	au := getUserFromContext(r.Context())
	todo, err := s.store.UpdateTodo(au.User.ID, r.PathValue("id"), store.TodoPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	s.writeTodoResult(w, r, todo, err, "update todo")
}

// handleToggleTodo handles POST /v1/todos/{id}/toggle.
func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	au := getUserFromContext(r.Context())
	todo, err := s.store.ToggleTodo(au.User.ID, r.PathValue("id"))
	s.writeTodoResult(w, r, todo, err, "toggle todo")
}

// handleDeleteTodo handles DELETE /v1/todos/{id}.
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	au := getUserFromContext(r.Context())
	id := r.PathValue("id")
	err := s.store.DeleteTodo(au.User.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "todo not found")
		return
	}
	if err != nil {
		logFor(r.Context()).Error("delete todo", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to delete todo")
		return
	}
	s.metrics.RecordTodoDeleted()
	logFor(r.Context()).Info("todo deleted", "todo_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeTodoResult(w http.ResponseWriter, r *http.Request, todo *store.Todo, err error, op string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "todo not found")
		return
	}
	if err != nil {
		logFor(r.Context()).Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to "+op)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}
