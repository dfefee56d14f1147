package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/marcus/taskboard/internal/validate"
)

// Error code constants for structured API error responses.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeValidation     = "validation_failed"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeSignupDisabled = "signup_disabled"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []validate.FieldError `json:"fields,omitempty"`
}

// ErrorResponse wraps an APIError for JSON serialization.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeAPIError(w, status, APIError{Code: code, Message: message})
}

// writeFieldErrors writes a 400 carrying per-field messages.
func writeFieldErrors(w http.ResponseWriter, code string, fields []validate.FieldError) {
	msg := "validation failed"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	writeAPIError(w, http.StatusBadRequest, APIError{Code: code, Message: msg, Fields: fields})
}

func writeAPIError(w http.ResponseWriter, status int, e APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: e}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}
