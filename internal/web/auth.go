package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/reqctx"
	"github.com/marcus/taskboard/internal/store"
	"github.com/marcus/taskboard/internal/validate"
)

// sessionName labels sessions created by the browser login.
const sessionName = "web"

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if user, _, _ := h.currentUser(r); user != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", &page{
		Lang:   h.lang(r),
		Title:  "auth.login",
		Next:   safeRedirect(r.URL.Query().Get("next"), ""),
		Signup: h.opts.AllowSignup,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	p := &page{
		Lang:   lang,
		Title:  "auth.login",
		Next:   safeRedirect(r.PostFormValue("next"), ""),
		Values: map[string]string{validate.FieldUsername: username},
		Signup: h.opts.AllowSignup,
	}

	if errs := validate.Login(username, password); errs != nil {
		p.Errors = errs.Map()
		h.render(w, r, http.StatusUnprocessableEntity, "login", p)
		return
	}

	user, err := h.store.CheckPassword(username, password)
	if err != nil {
		h.log(r).Error("check password", "err", err)
		p.Error = i18n.APIError(lang, http.StatusInternalServerError, "")
		h.render(w, r, http.StatusInternalServerError, "login", p)
		return
	}
	if user == nil {
		h.authEvent("", username, store.AuthEventLoginFailed, r)
		p.Error = i18n.T(lang, "toast.auth.loginError", "Invalid credentials")
		h.render(w, r, http.StatusUnauthorized, "login", p)
		return
	}

	if !h.startSession(w, r, user) {
		p.Error = i18n.APIError(lang, http.StatusInternalServerError, "")
		h.render(w, r, http.StatusInternalServerError, "login", p)
		return
	}
	h.authEvent(user.ID, user.Username, store.AuthEventLogin, r)
	h.setFlash(w, flashSuccess, i18n.T(lang, "toast.auth.loginSuccess", displayName(user)))
	http.Redirect(w, r, safeRedirect(p.Next, "/"), http.StatusSeeOther)
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if !h.opts.AllowSignup {
		h.setFlash(w, flashError, i18n.T(h.lang(r), "toast.apiError.403"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if user, _, _ := h.currentUser(r); user != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "register", &page{
		Lang:   h.lang(r),
		Title:  "auth.register",
		Signup: true,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	if !h.opts.AllowSignup {
		h.setFlash(w, flashError, i18n.T(lang, "toast.apiError.403"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	reg := validate.Registration{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	p := &page{
		Lang:  lang,
		Title: "auth.register",
		Values: map[string]string{
			validate.FieldUsername: reg.Username,
			validate.FieldEmail:    reg.Email,
			validate.FieldName:     reg.Name,
		},
		Signup: true,
	}

	if errs := validate.Register(reg); errs != nil {
		p.Errors = errs.Map()
		h.render(w, r, http.StatusUnprocessableEntity, "register", p)
		return
	}

	user, err := h.store.CreateUser(store.NewUser{
		Username: reg.Username,
		Email:    reg.Email,
		Name:     reg.Name,
		Password: reg.Password,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		p.Errors = map[string]string{validate.FieldUsername: "Username is already taken"}
		h.render(w, r, http.StatusConflict, "register", p)
		return
	}
	if err != nil {
		h.log(r).Error("create user", "err", err)
		p.Error = i18n.APIError(lang, http.StatusInternalServerError, "")
		h.render(w, r, http.StatusInternalServerError, "register", p)
		return
	}
	h.authEvent(user.ID, user.Username, store.AuthEventRegistered, r)

	if !h.startSession(w, r, user) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.setFlash(w, flashSuccess, i18n.T(lang, "toast.auth.registered", displayName(user)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, token, _ := h.currentUser(r)
	if token != "" {
		if err := h.store.RevokeSession(token); err != nil && !errors.Is(err, store.ErrNotFound) {
			h.log(r).Error("revoke session", "err", err)
		}
	}
	if user != nil {
		h.authEvent(user.ID, user.Username, store.AuthEventLogout, r)
	}
	h.clearCookie(w, sessionCookie)
	h.setFlash(w, flashSuccess, i18n.T(h.lang(r), "toast.auth.logoutSuccess"))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLang flips the UI language and returns to the page it came from.
func (h *Handler) handleLang(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, langCookie, i18n.Toggle(h.lang(r)), langCookieAge)
	http.Redirect(w, r, safeRedirect(r.URL.Query().Get("back"), "/"), http.StatusSeeOther)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *store.User) bool {
	token, _, err := h.store.CreateSession(user.ID, sessionName, h.opts.SessionTTL)
	if err != nil {
		h.log(r).Error("create session", "err", err)
		return false
	}
	h.setCookie(w, sessionCookie, token, h.opts.SessionTTL)
	return true
}

func (h *Handler) authEvent(userID, username, eventType string, r *http.Request) {
	meta, _ := json.Marshal(map[string]string{
		"ip":         reqctx.ClientIP(r),
		"user_agent": r.Header.Get("User-Agent"),
		"client":     sessionName,
	})
	if err := h.store.InsertAuthEvent(userID, username, eventType, string(meta)); err != nil {
		h.log(r).Warn("log auth event", "type", eventType, "err", err)
	}
}

func displayName(u *store.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
