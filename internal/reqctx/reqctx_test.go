package reqctx

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestResolve(t *testing.T) {
	proxies, err := ParseProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"direct peer", "198.51.100.7:4000", "", "198.51.100.7"},
		{"untrusted peer ignores header", "198.51.100.7:4000", "203.0.113.9", "198.51.100.7"},
		{"trusted peer", "10.1.2.3:4000", "203.0.113.9", "203.0.113.9"},
		{"rightmost untrusted hop wins", "10.1.2.3:4000", "1.1.1.1, 203.0.113.9, 10.0.0.5", "203.0.113.9"},
		{"single trusted address", "192.0.2.1:80", "203.0.113.9", "203.0.113.9"},
		{"all hops trusted", "10.1.2.3:4000", "10.0.0.9, 10.0.0.5", "10.0.0.9"},
		{"garbage hop", "10.1.2.3:4000", "not-an-ip", "10.1.2.3"},
		{"trusted peer without header", "10.1.2.3:4000", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := proxies.Resolve(req); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveWithoutProxies(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := Proxies(nil).Resolve(req); got != "198.51.100.7" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestParseProxiesRejectsBadInput(t *testing.T) {
	for _, spec := range []string{"10.0.0.0/33", "example.com", "300.1.1.1"} {
		if _, err := ParseProxies([]string{spec}); err == nil {
			t.Errorf("ParseProxies(%q): expected error", spec)
		}
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP = %q", got)
	}
	req = req.WithContext(WithClientIP(req.Context(), "203.0.113.9"))
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ClientIP from context = %q", got)
	}
}

func TestLoggerAndRequestID(t *testing.T) {
	fallback := slog.Default()
	ctx := context.Background()
	if Logger(ctx, fallback) != fallback || RequestID(ctx) != "" {
		t.Fatal("empty context should use fallbacks")
	}
	l := slog.New(slog.DiscardHandler)
	ctx = WithLogger(WithRequestID(ctx, "abc"), l)
	if Logger(ctx, fallback) != l || RequestID(ctx) != "abc" {
		t.Fatal("values not carried")
	}
}
