package web

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/reqctx"
	"github.com/marcus/taskboard/internal/store"
)

const (
	sessionCookie = "tb_session"
	langCookie    = "tb_lang"
	flashCookie   = "tb_flash"

	flashSuccess = "success"
	flashError   = "error"

	langCookieAge = 365 * 24 * time.Hour
)

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case maxAge > 0:
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	case maxAge < 0:
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	h.setCookie(w, name, "", -1)
}

// lang negotiates the UI language for r.
func (h *Handler) lang(r *http.Request) string {
	return i18n.FromRequest(r, langCookie)
}

// setFlash queues a notification for the next rendered page.
func (h *Handler) setFlash(w http.ResponseWriter, kind, msg string) {
	v := base64.RawURLEncoding.EncodeToString([]byte(kind + "\x00" + msg))
	h.setCookie(w, flashCookie, v, 0)
}

// takeFlash reads and clears the pending notification, if any.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	h.clearCookie(w, flashCookie)
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(string(raw), "\x00")
	if !ok || msg == "" {
		return nil
	}
	if kind != flashSuccess {
		kind = flashError
	}
	return &flash{Kind: kind, Message: msg}
}

// currentUser resolves the session cookie. hadSession reports whether a
// cookie was presented at all, so callers can tell an expired session from
// an anonymous visitor.
func (h *Handler) currentUser(r *http.Request) (user *store.User, token string, hadSession bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, "", false
	}
	_, user, err = h.store.VerifySession(c.Value)
	if err != nil {
		h.log(r).Warn("verify session", "err", err)
		return nil, "", true
	}
	if user == nil {
		return nil, "", true
	}
	return user, c.Value, true
}

// authed redirects anonymous visitors to the login page, remembering where
// they were headed.
func (h *Handler) authed(next func(http.ResponseWriter, *http.Request, *store.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _, hadSession := h.currentUser(r)
		if user == nil {
			if hadSession {
				h.clearCookie(w, sessionCookie)
				h.setFlash(w, flashError, i18n.T(h.lang(r), "toast.auth.sessionExpired"))
			}
			target := "/login"
			if r.Method == http.MethodGet && r.URL.RequestURI() != "/" {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		r = r.WithContext(reqctx.WithLogger(r.Context(), h.log(r).With("uid", user.ID)))
		next(w, r, user)
	}
}

// log returns the request logger set up by the server middleware, or the
// handler's own logger when served standalone.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return reqctx.Logger(r.Context(), h.logger)
}
