package api

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/taskboard/internal/reqctx"
	"github.com/marcus/taskboard/internal/store"
)

type contextKey int

const ctxKeyAuthUser contextKey = iota

// AuthUser is the caller resolved from the bearer token.
type AuthUser struct {
	User      *store.User
	SessionID string
	token     string
}

// getUserFromContext returns the authenticated user from the request context, or nil.
func getUserFromContext(ctx context.Context) *AuthUser {
	u, _ := ctx.Value(ctxKeyAuthUser).(*AuthUser)
	return u
}

// logFor returns the context-scoped logger, falling back to the default logger.
func logFor(ctx context.Context) *slog.Logger {
	return reqctx.Logger(ctx, slog.Default())
}

// loggerMiddleware creates a per-request logger with the request ID and stores it in the context.
func loggerMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With("rid", reqctx.RequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(reqctx.WithLogger(r.Context(), l)))
		})
	}
}

// requestIDPattern accepts inbound request ids that are safe to echo and log.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// requestIDMiddleware tags each request with an id, reusing an inbound
// X-Request-ID so a client can correlate its logs with ours.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(reqctx.WithRequestID(r.Context(), id)))
	})
}

// clientIPMiddleware resolves the caller's address once, honoring
// X-Forwarded-For only from trusted proxies.
func clientIPMiddleware(proxies reqctx.Proxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := reqctx.WithClientIP(r.Context(), proxies.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusCapture wraps ResponseWriter to capture the status code and the
// number of body bytes written.
type statusCapture struct {
	http.ResponseWriter
	code        int
	bytes       int
	wroteHeader bool
}

func (sc *statusCapture) WriteHeader(code int) {
	if !sc.wroteHeader {
		sc.code = code
		sc.wroteHeader = true
	}
	sc.ResponseWriter.WriteHeader(code)
}

func (sc *statusCapture) Write(b []byte) (int, error) {
	sc.wroteHeader = true
	n, err := sc.ResponseWriter.Write(b)
	sc.bytes += n
	return n, err
}

// accessLogMiddleware counts each request in the metrics and writes one
// access log line for it. Browser page requests are tagged surface=web,
// everything else surface=api.
func accessLogMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RecordRequest()
			sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sc, r)

			level := slog.LevelInfo
			switch {
			case sc.code >= 500:
				m.RecordError()
				level = slog.LevelError
			case sc.code >= 400:
				m.RecordClientError()
			}

			surface := "web"
			if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/healthz" || r.URL.Path == "/metricz" {
				surface = "api"
			}
			logFor(r.Context()).Log(r.Context(), level, "req",
				"surface", surface,
				"method", r.Method,
				"path", r.URL.Path,
				"status", sc.code,
				"bytes", sc.bytes,
				"dur", time.Since(start).String(),
			)
		})
	}
}

// recoveryMiddleware turns a panic into a 500 response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logFor(r.Context()).Error("panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAuth verifies the Bearer token and injects AuthUser into the
// context before calling the inner handler.
func (s *Server) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid authorization format")
			return
		}

		sess, user, err := s.store.VerifySession(token)
		if err != nil {
			logFor(r.Context()).Error("verify session", "err", err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to verify session")
			return
		}
		if sess == nil || user == nil {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAuthUser, &AuthUser{User: user, SessionID: sess.ID, token: token})
		ctx = reqctx.WithLogger(ctx, logFor(ctx).With("uid", user.ID))
		handler(w, r.WithContext(ctx))
	}
}

// maxBytesMiddleware limits request body size.
func maxBytesMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// chain applies middleware in order (first applied is outermost).
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
