// Package client is a thin HTTP client for the taskboard REST API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/taskboard/internal/i18n"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
)

// Client is an HTTP client for the taskboard server.
type Client struct {
	BaseURL string
	Token   string
	// Agent names the sessions this client creates on login.
	Agent string
	HTTP  *http.Client
}

// New creates a new client.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		Agent:   "cli",
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Response types (mirror internal/api, independently defined) ---

// User is the public account record.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Todo is a task as returned by the API.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoPage is one page of a todo listing.
type TodoPage struct {
	Data       []Todo `json:"data"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User      User       `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Registration is the sign-up request.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// Query selects a page of todos. Zero fields use the server defaults.
type Query struct {
	View    string
	Search  string
	Page    int
	PerPage int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.View != "" {
		v.Set("view", q.View)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("limit", strconv.Itoa(q.PerPage))
	}
	return v
}

// TodoPatch holds optional field updates.
type TodoPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Health hits the /healthz endpoint to verify server reachability.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doNoAuth("GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Auth methods ---

// Register creates an account and returns its first session.
func (c *Client) Register(reg Registration) (*AuthResponse, error) {
	body := struct {
		Registration
		Client string `json:"client,omitempty"`
	}{reg, c.Agent}
	var resp AuthResponse
	if err := c.doNoAuth("POST", "/v1/auth/register", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(username, password string) (*AuthResponse, error) {
	body := map[string]string{"username": username, "password": password}
	if c.Agent != "" {
		body["client"] = c.Agent
	}
	var resp AuthResponse
	if err := c.doNoAuth("POST", "/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the client's token.
func (c *Client) Logout() error {
	return c.do("POST", "/v1/auth/logout", nil, nil)
}

// Me returns the account the token belongs to.
func (c *Client) Me() (*User, error) {
	var resp User
	if err := c.do("GET", "/v1/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Todo methods ---

// ListTodos returns one page of the caller's todos.
func (c *Client) ListTodos(q Query) (*TodoPage, error) {
	path := "/v1/todos"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var resp TodoPage
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTodo fetches a single todo.
func (c *Client) GetTodo(id string) (*Todo, error) {
	var resp Todo
	if err := c.do("GET", "/v1/todos/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateTodo creates a todo.
func (c *Client) CreateTodo(title, description string) (*Todo, error) {
	body := map[string]string{"title": title, "description": description}
	var resp Todo
	if err := c.do("POST", "/v1/todos", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTodo applies a partial update.
func (c *Client) UpdateTodo(id string, patch TodoPatch) (*Todo, error) {
	var resp Todo
	if err := c.do("PATCH", "/v1/todos/"+url.PathEscape(id), patch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleTodo flips a todo's completed flag.
func (c *Client) ToggleTodo(id string) (*Todo, error) {
	var resp Todo
	if err := c.do("POST", "/v1/todos/"+url.PathEscape(id)+"/toggle", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTodo deletes a todo.
func (c *Client) DeleteTodo(id string) error {
	return c.do("DELETE", "/v1/todos/"+url.PathEscape(id), nil, nil)
}

// --- Errors ---

// FieldError is a validation message for one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Unwrap maps the status to a sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// Field returns the message for field, or "".
func (e *APIError) Field(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Describe turns err into the toast text a user should see, in lang.
func Describe(err error, lang string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return i18n.APIError(lang, apiErr.Status, apiErr.Message)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return i18n.T(lang, "toast.network.timeout")
		}
		return i18n.T(lang, "toast.network.error")
	}
	return i18n.T(lang, "toast.apiError.default", err.Error())
}

// --- HTTP helpers ---

// do executes an authenticated HTTP request.
func (c *Client) do(method, path string, body, result any) error {
	return c.doRequest(method, path, body, result, true)
}

// doNoAuth executes an unauthenticated HTTP request.
func (c *Client) doNoAuth(method, path string, body, result any) error {
	return c.doRequest(method, path, body, result, false)
}

func (c *Client) doRequest(method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
			envelope.Error.Status = resp.StatusCode
			apiErr = envelope.Error
		} else if msg := strings.TrimSpace(string(respBody)); msg != "" {
			apiErr.Message = msg
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
