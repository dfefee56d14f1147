// Package validate checks the login, registration and todo forms and
// produces user-facing messages per field.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError is a validation failure on one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors holds at most one error per field, in form order. A nil Errors
// means the form is valid.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Map returns the errors keyed by field.
func (e Errors) Map() map[string]string {
	m := make(map[string]string, len(e))
	for _, fe := range e {
		m[fe.Field] = fe.Message
	}
	return m
}

// Err returns e as an error, or nil when e is empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Form field names.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldName            = "name"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldTitle           = "title"
	FieldDescription     = "description"
)

// Field limits.
const (
	MinPassword    = 6
	MaxPassword    = 50
	MinUsername    = 3
	MaxUsername    = 20
	MinName        = 2
	MaxName        = 50
	MinTitle       = 3
	MaxTitle       = 100
	MinDescription = 10
	MaxDescription = 500
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// rule checks one field value and returns a message, or "" if it passes.
type rule func(string) string

func required(msg string) rule {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return msg
		}
		return ""
	}
}

func minLen(n int, label string) rule {
	return func(v string) string {
		if utf8.RuneCountInString(v) < n {
			return fmt.Sprintf("%s must be at least %d characters", label, n)
		}
		return ""
	}
}

func maxLen(n int, label string) rule {
	return func(v string) string {
		if utf8.RuneCountInString(v) > n {
			return fmt.Sprintf("%s must not exceed %d characters", label, n)
		}
		return ""
	}
}

func matches(re *regexp.Regexp, msg string) rule {
	return func(v string) string {
		if !re.MatchString(v) {
			return msg
		}
		return ""
	}
}

func email(msg string) rule {
	return func(v string) string {
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
			return msg
		}
		return ""
	}
}

func equals(other, msg string) rule {
	return func(v string) string {
		if v != other {
			return msg
		}
		return ""
	}
}

type checker struct {
	errs Errors
}

// field runs rules in order and records the first failure.
func (c *checker) field(name, value string, rules ...rule) {
	for _, r := range rules {
		if msg := r(value); msg != "" {
			c.errs = append(c.errs, FieldError{Field: name, Message: msg})
			return
		}
	}
}

// Login validates the login form.
func Login(username, password string) Errors {
	var c checker
	c.field(FieldUsername, strings.TrimSpace(username), required("Username is required"))
	c.field(FieldPassword, password,
		required("Password is required"),
		minLen(MinPassword, "Password"),
	)
	return c.errs
}

// Registration is the sign-up form.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register validates the sign-up form.
func Register(r Registration) Errors {
	var c checker
	c.field(FieldUsername, strings.TrimSpace(r.Username),
		required("Username is required"),
		minLen(MinUsername, "Username"),
		maxLen(MaxUsername, "Username"),
		matches(usernamePattern, "Username can only contain letters, numbers and underscore"),
	)
	c.field(FieldEmail, strings.TrimSpace(r.Email),
		required("Email is required"),
		email("Invalid email address"),
	)
	c.field(FieldName, strings.TrimSpace(r.Name),
		required("Full name is required"),
		minLen(MinName, "Name"),
		maxLen(MaxName, "Name"),
	)
	c.field(FieldPassword, r.Password,
		required("Password is required"),
		minLen(MinPassword, "Password"),
		maxLen(MaxPassword, "Password"),
	)
	c.field(FieldConfirmPassword, r.ConfirmPassword,
		required("Please confirm your password"),
		equals(r.Password, "Passwords must match"),
	)
	return c.errs
}

// Todo validates the create and edit form.
func Todo(title, description string) Errors {
	var c checker
	c.field(FieldTitle, strings.TrimSpace(title),
		required("Title is required"),
		minLen(MinTitle, "Title"),
		maxLen(MaxTitle, "Title"),
	)
	c.field(FieldDescription, strings.TrimSpace(description),
		required("Description is required"),
		minLen(MinDescription, "Description"),
		maxLen(MaxDescription, "Description"),
	)
	return c.errs
}

// TodoPatch validates only the fields present in a partial update.
func TodoPatch(title, description *string) Errors {
	var c checker
	if title != nil {
		c.field(FieldTitle, strings.TrimSpace(*title),
			required("Title is required"),
			minLen(MinTitle, "Title"),
			maxLen(MaxTitle, "Title"),
		)
	}
	if description != nil {
		c.field(FieldDescription, strings.TrimSpace(*description),
			required("Description is required"),
			minLen(MinDescription, "Description"),
			maxLen(MaxDescription, "Description"),
		)
	}
	return c.errs
}
