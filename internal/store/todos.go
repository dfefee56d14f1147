package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Todo is a user-owned task record.
type Todo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoPatch holds optional field updates; nil fields are left unchanged.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

const todoColumns = `id, user_id, title, description, completed, created_at, updated_at`

func scanTodo(row interface{ Scan(...any) error }) (*Todo, error) {
	t := &Todo{}
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTodo inserts a new pending todo owned by userID.
func (s *Store) CreateTodo(userID, title, description string) (*Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	now := time.Now().UTC()
	t := &Todo{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.conn.Exec(
		`INSERT INTO todos (`+todoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

// GetTodo returns the user's todo with the given id, or nil when it does
// not exist or belongs to someone else.
func (s *Store) GetTodo(userID, id string) (*Todo, error) {
	t, err := scanTodo(s.conn.QueryRow(
		`SELECT `+todoColumns+` FROM todos WHERE id = ? AND user_id = ?`, id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// ListTodos returns all of the user's todos, newest first.
func (s *Store) ListTodos(userID string) ([]*Todo, error) {
	rows, err := s.conn.Query(
		`SELECT `+todoColumns+` FROM todos WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := []*Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: iterate: %w", err)
	}
	return todos, nil
}

// CountTodos returns the user's total and completed todo counts.
func (s *Store) CountTodos(userID string) (total, completed int, err error) {
	err = s.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM todos WHERE user_id = ?`, userID,
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("count todos: %w", err)
	}
	return total, completed, nil
}

// UpdateTodo applies the patch to the user's todo and returns the result.
func (s *Store) UpdateTodo(userID, id string, patch TodoPatch) (*Todo, error) {
	current, err := s.GetTodo(userID, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	if patch.Empty() {
		return current, nil
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("title cannot be empty")
		}
		current.Title = title
	}
	if patch.Description != nil {
		current.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Completed != nil {
		current.Completed = *patch.Completed
	}
	current.UpdatedAt = time.Now().UTC()

	_, err = s.conn.Exec(
		`UPDATE todos SET title = ?, description = ?, completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		current.Title, current.Description, current.Completed, current.UpdatedAt, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return current, nil
}

// ToggleTodo flips the completion flag of the user's todo.
func (s *Store) ToggleTodo(userID, id string) (*Todo, error) {
	current, err := s.GetTodo(userID, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	completed := !current.Completed
	return s.UpdateTodo(userID, id, TodoPatch{Completed: &completed})
}

// DeleteTodo removes the user's todo.
func (s *Store) DeleteTodo(userID, id string) error {
	res, err := s.conn.Exec(`DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	return nil
}
