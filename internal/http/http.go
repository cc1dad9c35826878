package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"registrydash/internal/guard"
	"registrydash/internal/http/middleware"
	"registrydash/internal/logging"
	"registrydash/internal/routes"
	"registrydash/internal/session"
	"registrydash/internal/users"
	"registrydash/internal/view"
	"registrydash/internal/web"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// UserStore is the user lookup the handlers need.
type UserStore interface {
	ByUsername(ctx context.Context, username string) (users.User, error)
	ByID(ctx context.Context, id string) (users.User, error)
}

// Deps is everything the mux serves from. Views holds each session's ledger,
// billing and catalog state.
type Deps struct {
	Table        *routes.Table
	Guard        *guard.Guard
	Clock        clockwork.Clock
	Sessions     *session.Provider
	Users        UserStore
	Views        *session.Registry[*view.View]
	LoginLimiter *middleware.RateLimiter
	TPL          *web.Renderer
}

func NewMux(d Deps) (*http.ServeMux, error) {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.TPL == nil {
		rend, err := web.NewRenderer()
		if err != nil {
			return nil, err
		}
		d.TPL = rend
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	ah := &AuthHandler{Deps: d}
	ah.Routes(mux)

	bh := &BalanceHandler{Views: d.Views}
	bh.Routes(mux, d.Clock)

	fh := &BillingHandler{Views: d.Views}
	fh.Routes(mux, d.Clock)

	ch := &CatalogHandler{Views: d.Views}
	ch.Routes(mux, d.Clock)

	ph := &PageHandler{Deps: d}
	if err := ph.Routes(mux); err != nil {
		return nil, err
	}

	return mux, nil
}

// viewOf returns the request's session view, or nil without a session ID.
func viewOf(views *session.Registry[*view.View], r *http.Request) *view.View {
	id := sessionOf(r).ID()
	if id == "" {
		return nil
	}
	return views.For(id)
}

func WithStandardMiddleware(sessions middleware.SessionReader, next http.Handler) http.Handler {
	return requestLogger(securityHeaders(middleware.WithSession(sessions, next)))
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		l := slog.Default().With("request_id", reqID)
		r = r.WithContext(logging.WithLogger(r.Context(), l))

		ww := &wrapWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		l.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
