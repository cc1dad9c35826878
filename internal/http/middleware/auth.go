package middleware

import (
	"net/http"

	"registrydash/internal/session"

	"github.com/jonboulle/clockwork"
)

// SessionReader extracts a session from a request.
type SessionReader interface {
	FromRequest(r *http.Request) session.Session
}

// WithSession puts the request's session into its context. It never rejects.
func WithSession(sessions SessionReader, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
	})
}

// RequireSession answers 401 unless the session is authenticated at the time
// of the request. API routes use it; pages go through the guard instead.
func RequireSession(clock clockwork.Clock, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.From(r.Context()).Authenticated(clock.Now()) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func UserID(r *http.Request) string {
	return session.From(r.Context()).UserID()
}
