package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/validate"
)

type registerRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	Password        string  `json:"password"`
	ConfirmPassword *string `json:"confirmPassword"`
	Client          string  `json:"client"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Client   string `json:"client"`
}

// authResponse is returned by register and login.
type authResponse struct {
	User      *store.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// handleRegister handles POST /v1/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.config.AllowSignup {
		writeError(w, http.StatusForbidden, ErrCodeSignupDisabled, "signups are disabled")
		return
	}

	var req registerRequest
	if !decodeBody(w, r, registerSchema, &req) {
		return
	}
	// API clients may omit the confirmation the browser form asks for.
	confirm := req.Password
	if req.ConfirmPassword != nil {
		confirm = *req.ConfirmPassword
	}
	if errs := validate.Register(validate.Registration{
		Username:        req.Username,
		Email:           req.Email,
		Name:            req.Name,
		Password:        req.Password,
		ConfirmPassword: confirm,
	}); errs != nil {
		writeFieldErrors(w, ErrCodeValidation, errs)
		return
	}

	user, err := s.store.CreateUser(store.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		writeAPIError(w, http.StatusConflict, APIError{
			Code:    ErrCodeConflict,
			Message: "Username is already taken",
			Fields:  []validate.FieldError{{Field: validate.FieldUsername, Message: "Username is already taken"}},
		})
		return
	}
	if err != nil {
		logFor(r.Context()).Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create user")
		return
	}

	s.logAuthEvent(user.ID, user.Username, store.AuthEventRegistered, r)
	logFor(r.Context()).Info("user registered", "user_id", user.ID)
	s.issueSession(w, r, user, req.Client, http.StatusCreated)
}

// handleLogin handles POST /v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, loginSchema, &req) {
		return
	}
	if errs := validate.Login(req.Username, req.Password); errs != nil {
		writeFieldErrors(w, ErrCodeValidation, errs)
		return
	}

	user, err := s.store.CheckPassword(req.Username, req.Password)
	if err != nil {
		logFor(r.Context()).Error("check password", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to check credentials")
		return
	}
	if user == nil {
		s.logAuthEvent("", strings.TrimSpace(req.Username), store.AuthEventLoginFailed, r)
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials")
		return
	}

	s.metrics.RecordLogin()
	s.logAuthEvent(user.ID, user.Username, store.AuthEventLogin, r)
	s.issueSession(w, r, user, req.Client, http.StatusOK)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user *store.User, client string, status int) {
	if client == "" {
		client = "api"
	}
	token, sess, err := s.store.CreateSession(user.ID, client, s.config.SessionTTL.Std())
	if err != nil {
		logFor(r.Context()).Error("create session", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create session")
		return
	}
	writeJSON(w, status, authResponse{User: user, Token: token, ExpiresAt: sess.ExpiresAt})
}

// handleLogout handles POST /v1/auth/logout. It revokes the calling token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	au := getUserFromContext(r.Context())
	if err := s.store.RevokeSession(au.token); err != nil && !errors.Is(err, store.ErrNotFound) {
		logFor(r.Context()).Error("revoke session", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to revoke session")
		return
	}
	s.logAuthEvent(au.User.ID, au.User.Username, store.AuthEventLogout, r)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /v1/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, getUserFromContext(r.Context()).User)
}

// logAuthEvent records an auth event, logging but otherwise ignoring errors.
func (s *Server) logAuthEvent(userID, username, eventType string, r *http.Request) {
	meta, _ := json.Marshal(map[string]string{
		"ip":         clientIP(r),
		"user_agent": r.Header.Get("User-Agent"),
	})
	if err := s.store.InsertAuthEvent(userID, username, eventType, string(meta)); err != nil {
		logFor(r.Context()).Warn("log auth event", "type", eventType, "err", err)
	}
}
