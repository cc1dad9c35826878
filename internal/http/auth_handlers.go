package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"registrydash/internal/auth"
	"registrydash/internal/http/middleware"
	"registrydash/internal/logging"
	"registrydash/internal/routes"
	"registrydash/internal/users"
)

type AuthHandler struct {
	Deps
}

func (h *AuthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.Handle("GET /api/v1/auth/me", middleware.RequireSession(h.Clock, http.HandlerFunc(h.Me)))
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type meResp struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	RefreshExp  int64  `json:"refresh_exp"`
}

// Login accepts JSON (answering 204/4xx) or the sign-in form (answering redirects).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := isForm(r)
	fail := func(status int, msg, formStatus string) {
		if form {
			h.redirectTo(w, r, routes.SignIn, url.Values{"status": {formStatus}})
			return
		}
		http.Error(w, msg, status)
	}

	if !h.LoginLimiter.Allow(middleware.ClientIP(r)) {
		fail(http.StatusTooManyRequests, "too many attempts", "limited")
		return
	}

	var req loginReq
	if form {
		if err := r.ParseForm(); err != nil {
			fail(http.StatusBadRequest, "bad form", "invalid")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		fail(http.StatusBadRequest, "missing credentials", "invalid")
		return
	}

	u, err := h.Users.ByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		logging.From(r.Context()).Error("auth.lookup", "err", err)
	}
	if err != nil || !auth.CheckPassword(req.Password, u.PasswordHash) {
		fail(http.StatusUnauthorized, "invalid credentials", "invalid")
		return
	}

	if old := sessionOf(r).ID(); old != "" {
		h.Views.Drop(old)
	}
	if _, err := h.Sessions.Issue(w, u.ID); err != nil {
		logging.From(r.Context()).Error("auth.issue", "err", err)
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	logging.From(r.Context()).Info("auth.signed_in", "user_id", u.ID)

	if form {
		h.redirectTo(w, r, routes.Home, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the session cookies and tears down the session's view.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := sessionOf(r).ID(); sid != "" {
		h.Views.Drop(sid)
		logging.From(r.Context()).Info("auth.signed_out", "user_id", middleware.UserID(r), "session_id", sid)
	}
	h.Sessions.Clear(w)
	h.redirectTo(w, r, routes.SignIn, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r)
	u, err := h.Users.ByID(r.Context(), uid)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	resp := meResp{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
	if s := sessionOf(r); s.HasRefresh() {
		resp.RefreshExp = s.Refresh.Exp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) redirectTo(w http.ResponseWriter, r *http.Request, name string, q url.Values) {
	target, err := h.Table.PathFor(name, nil)
	if err != nil {
		http.Error(w, "routing error", http.StatusInternalServerError)
		return
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isForm(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}
