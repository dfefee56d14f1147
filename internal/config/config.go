// Package config loads the taskboard server configuration: built-in
// defaults, then an optional YAML file, then TASKBOARD_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcus/taskboard/internal/reqctx"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	DBPath          string        `yaml:"db_path"`
	DBDriver        string        `yaml:"db_driver"` // "sqlite" (pure Go, default) or "sqlite3" (cgo)
	BaseURL         string        `yaml:"base_url"`  // public origin for share links; empty = derived
	Dev             bool          `yaml:"dev"`
	AllowSignup     bool          `yaml:"allow_signup"`
	SessionTTL      Duration      `yaml:"session_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	LogFormat       string        `yaml:"log_format"` // "json" (default), "text" or "pretty"
	LogLevel        string        `yaml:"log_level"`  // "debug", "info" (default), "warn", "error"

	RateLimitAuth  int `yaml:"rate_limit_auth"`  // auth endpoints per IP per minute
	RateLimitWrite int `yaml:"rate_limit_write"` // todo mutations per session per minute
	RateLimitRead  int `yaml:"rate_limit_read"`  // everything else per session per minute

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` // empty = CORS disabled
	TrustedProxies     []string `yaml:"trusted_proxies"`      // peers whose X-Forwarded-For is believed

	AuthEventRetention      Duration `yaml:"auth_event_retention"`
	RateLimitEventRetention Duration `yaml:"rate_limit_event_retention"`
	CleanupInterval         Duration `yaml:"cleanup_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:      ":3000",
		DBPath:          "./data/taskboard.db",
		DBDriver:        "sqlite",
		AllowSignup:     true,
		SessionTTL:      Duration(30 * 24 * time.Hour),
		ShutdownTimeout: 30 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",

		RateLimitAuth:  10,
		RateLimitWrite: 120,
		RateLimitRead:  300,

		AuthEventRetention:      Duration(90 * 24 * time.Hour),
		RateLimitEventRetention: Duration(30 * 24 * time.Hour),
		CleanupInterval:         Duration(time.Hour),
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path uses TASKBOARD_CONFIG; a missing file is not an
// error unless it was named explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("TASKBOARD_CONFIG")
		explicit = path != ""
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("invalid db_driver %q: want sqlite or sqlite3", c.DBDriver)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("invalid log_format %q: want json, text or pretty", c.LogFormat)
	}
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if _, err := reqctx.ParseProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKBOARD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TASKBOARD_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TASKBOARD_DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv("TASKBOARD_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v, ok := envBool("TASKBOARD_DEV"); ok {
		cfg.Dev = v
	}
	if v, ok := envBool("TASKBOARD_ALLOW_SIGNUP"); ok {
		cfg.AllowSignup = v
	}
	if v, ok := envBool("TASKBOARD_SECURE_COOKIES"); ok {
		cfg.SecureCookies = v
	}
	if v := os.Getenv("TASKBOARD_SESSION_TTL"); v != "" {
		if d := ParseDaysDuration(v); d > 0 {
			cfg.SessionTTL = Duration(d)
		}
	}
	if v := os.Getenv("TASKBOARD_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("TASKBOARD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TASKBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	envInt("TASKBOARD_RATE_LIMIT_AUTH", &cfg.RateLimitAuth)
	envInt("TASKBOARD_RATE_LIMIT_WRITE", &cfg.RateLimitWrite)
	envInt("TASKBOARD_RATE_LIMIT_READ", &cfg.RateLimitRead)

	if v := os.Getenv("TASKBOARD_AUTH_EVENT_RETENTION"); v != "" {
		if d := ParseDaysDuration(v); d > 0 {
			cfg.AuthEventRetention = Duration(d)
		}
	}
	if v := os.Getenv("TASKBOARD_RATE_LIMIT_EVENT_RETENTION"); v != "" {
		if d := ParseDaysDuration(v); d > 0 {
			cfg.RateLimitEventRetention = Duration(d)
		}
	}

	if v := os.Getenv("TASKBOARD_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = envList(v)
	}
	if v := os.Getenv("TASKBOARD_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = envList(v)
	}
}

// envList splits a comma-separated variable, dropping empty items.
func envList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

// ParseDaysDuration parses "90d" style day counts as well as standard Go
// durations. It returns 0 for anything it cannot parse.
func ParseDaysDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return 0
}

// Duration is a time.Duration that accepts "90d" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed := ParseDaysDuration(s)
	if parsed <= 0 {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
