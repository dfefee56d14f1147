// Package clientconfig stores the CLI's server address, language and login
// token under ~/.config/taskboard.
package clientconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcus/taskboard/internal/i18n"
)

// Config is the CLI config stored at ~/.config/taskboard/config.yaml.
type Config struct {
	ServerURL string `yaml:"server_url,omitempty"`
	Lang      string `yaml:"lang,omitempty"`
}

// AuthCredentials is the login state stored at
// ~/.config/taskboard/auth.yaml.
type AuthCredentials struct {
	Token     string     `yaml:"token"`
	UserID    string     `yaml:"user_id"`
	Username  string     `yaml:"username"`
	ServerURL string     `yaml:"server_url"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

// Expired reports whether the stored token is past its expiry.
func (a *AuthCredentials) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// DefaultServerURL matches the server's default listen address.
const DefaultServerURL = "http://localhost:3000"

const (
	configFile = "config.yaml"
	authFile   = "auth.yaml"
)

// Dir returns ~/.config/taskboard, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "taskboard")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

func readYAML(name string, out any) (bool, error) {
	dir, err := Dir()
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func writeYAML(name string, v any, perm os.FileMode) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, perm)
}

// LoadConfig reads config.yaml. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := readYAML(configFile, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes config.yaml.
func SaveConfig(cfg *Config) error {
	return writeYAML(configFile, cfg, 0o644)
}

// LoadAuth reads auth.yaml. It returns nil, nil when nobody is logged in.
func LoadAuth() (*AuthCredentials, error) {
	var creds AuthCredentials
	found, err := readYAML(authFile, &creds)
	if err != nil || !found {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes auth.yaml with 0600 permissions.
func SaveAuth(creds *AuthCredentials) error {
	return writeYAML(authFile, creds, 0o600)
}

// ClearAuth removes auth.yaml.
func ClearAuth() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, authFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ServerURL returns the API server address.
// Priority: TASKBOARD_URL env > config.yaml > default.
func ServerURL() string {
	if v := os.Getenv("TASKBOARD_URL"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return DefaultServerURL
}

// Token returns the bearer token.
// Priority: TASKBOARD_TOKEN env > auth.yaml.
func Token() string {
	if v := os.Getenv("TASKBOARD_TOKEN"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.Token
	}
	return ""
}

// Lang returns the CLI language.
// Priority: TASKBOARD_LANG env > config.yaml > English. Unsupported values
// fall through to the next source.
func Lang() string {
	if v := os.Getenv("TASKBOARD_LANG"); i18n.Supported(v) {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && i18n.Supported(cfg.Lang) {
		return cfg.Lang
	}
	return i18n.Default
}

// IsAuthenticated reports whether a token is available.
func IsAuthenticated() bool {
	return Token() != ""
}
