package clientconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TASKBOARD_URL", "")
	t.Setenv("TASKBOARD_TOKEN", "")
	t.Setenv("TASKBOARD_LANG", "")
	return home
}

func TestServerURLDefault(t *testing.T) {
	withHome(t)
	if got := ServerURL(); got != DefaultServerURL {
		t.Fatalf("default url: got %q, want %q", got, DefaultServerURL)
	}
}

func TestServerURLPriority(t *testing.T) {
	withHome(t)
	if err := SaveConfig(&Config{ServerURL: "http://from-config:3000"}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if got := ServerURL(); got != "http://from-config:3000" {
		t.Fatalf("config url: got %q", got)
	}

	t.Setenv("TASKBOARD_URL", "http://from-env:3000")
	if got := ServerURL(); got != "http://from-env:3000" {
		t.Fatalf("env url: got %q", got)
	}
}

func TestAuthRoundTripAndPermissions(t *testing.T) {
	home := withHome(t)

	if creds, err := LoadAuth(); err != nil || creds != nil {
		t.Fatalf("expected no credentials, got %+v, %v", creds, err)
	}
	if IsAuthenticated() {
		t.Fatal("should not be authenticated without auth.yaml")
	}

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := SaveAuth(&AuthCredentials{Token: "tb_abc", UserID: "u1", Username: "alice", ExpiresAt: &exp}); err != nil {
		t.Fatalf("save auth: %v", err)
	}

	info, err := os.Stat(filepath.Join(home, ".config", "taskboard", "auth.yaml"))
	if err != nil {
		t.Fatalf("stat auth.yaml: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("auth.yaml perms: got %o, want 600", perm)
	}

	creds, err := LoadAuth()
	if err != nil || creds == nil {
		t.Fatalf("load auth: %+v, %v", creds, err)
	}
	if creds.Token != "tb_abc" || creds.Username != "alice" || !creds.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected creds %+v", creds)
	}
	if Token() != "tb_abc" {
		t.Fatalf("token: got %q", Token())
	}

	t.Setenv("TASKBOARD_TOKEN", "tb_env")
	if Token() != "tb_env" {
		t.Fatal("env token should win")
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("clear auth: %v", err)
	}
	if err := ClearAuth(); err != nil {
		t.Fatalf("clearing twice should be a no-op: %v", err)
	}
	if creds, _ := LoadAuth(); creds != nil {
		t.Fatal("expected credentials to be gone")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	if (&AuthCredentials{}).Expired(now) {
		t.Fatal("no expiry never expires")
	}
	if !(&AuthCredentials{ExpiresAt: &past}).Expired(now) {
		t.Fatal("past expiry should be expired")
	}
	if (&AuthCredentials{ExpiresAt: &future}).Expired(now) {
		t.Fatal("future expiry should not be expired")
	}
}

func TestLang(t *testing.T) {
	withHome(t)
	if got := Lang(); got != "en" {
		t.Fatalf("default lang: got %q", got)
	}
	if err := SaveConfig(&Config{Lang: "vi"}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if got := Lang(); got != "vi" {
		t.Fatalf("config lang: got %q", got)
	}
	t.Setenv("TASKBOARD_LANG", "fr")
	if got := Lang(); got != "vi" {
		t.Fatalf("unsupported env lang should be ignored, got %q", got)
	}
	t.Setenv("TASKBOARD_LANG", "en")
	if got := Lang(); got != "en" {
		t.Fatalf("env lang: got %q", got)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	withHome(t)
	dir, err := Dir()
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("server_url: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
	if got := ServerURL(); got != DefaultServerURL {
		t.Fatalf("bad config should fall back to default, got %q", got)
	}
}
