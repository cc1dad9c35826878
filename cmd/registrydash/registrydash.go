package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"registrydash/internal/auth"
	"registrydash/internal/billing"
	"registrydash/internal/catalog"
	"registrydash/internal/config"
	"registrydash/internal/db"
	"registrydash/internal/dbinit"
	"registrydash/internal/guard"
	apphttp "registrydash/internal/http"
	"registrydash/internal/http/middleware"
	"registrydash/internal/logging"
	"registrydash/internal/routes"
	"registrydash/internal/session"
	"registrydash/internal/users"
	"registrydash/internal/view"

	"github.com/jonboulle/clockwork"
)

func main() {
	cfgPath := "config.yaml"
	if p := os.Getenv("REGISTRYDASH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil && !errors.Is(err, config.ErrMissing) {
		panic(err)
	}

	l := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(l)

	if err != nil {
		slog.Warn("config.missing", "path", cfgPath, "msg", "running with default values")
		slog.Warn("config.default_secret", "msg", "the JWT secret is a default value; do not run this in production")
	}

	pgURL, err := cfg.Database.AppURL()
	if err != nil {
		slog.Error("db.url", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	if err := dbinit.EnsureDatabaseAndMigrate(ctx, pgURL, cfg.Database.Name, cfg.Database.User); err != nil {
		slog.Error("db.init", "err", err)
		os.Exit(1)
	}
	slog.Info("db.migrated")

	ctxpool, cancelpool := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancelpool()
	pool, err := db.NewPool(ctxpool, pgURL)
	if err != nil {
		slog.Error("db.pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	clock := clockwork.NewRealClock()
	tbl, err := routes.NewTable(routes.App())
	if err != nil {
		slog.Error("routes", "err", err)
		os.Exit(1)
	}

	sessions := session.NewProvider(auth.NewTokens(cfg.Security.JWTSecret, cfg.Session.AccessTTL, cfg.Session.RefreshTTL, clock))
	sessions.Secure = strings.HasPrefix(cfg.BaseURL, "https://")

	factory := view.Factory{
		InitialBalance: cfg.Balance.Initial,
		Billing:        billing.NewRepository(pool).Sources(),
	}
	if cfg.Billing.Fixtures {
		factory.Billing = billing.Fixtures()
	}
	if cfg.Catalog.BaseURL != "" {
		// The registry accepts the dashboard's own credentials token.
		factory.Catalog = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, catalog.WithToken(func(ctx context.Context) string {
			if s := session.From(ctx); s.HasCredentials() {
				return s.Credentials.Raw
			}
			return ""
		}))
	} else {
		slog.Warn("catalog.disabled", "msg", "catalog.base_url is empty; service pages stay empty")
	}
	views := view.NewRegistry(factory, session.WithRegistryClock(clock))

	refresher := billing.NewRefresher(view.BillingStores(views), billing.Query{Limit: billing.MaxLimit, Page: 1}, l)
	if err := refresher.Register(cfg.Billing.RefreshCron); err != nil {
		slog.Error("billing.refresher", "err", err)
		os.Exit(1)
	}
	// A session idle past its refresh lifetime cannot come back.
	if _, err := refresher.Cron.AddFunc(cfg.Billing.RefreshCron, func() {
		if n := views.Prune(cfg.Session.RefreshTTL); n > 0 {
			slog.Info("views.pruned", "sessions", n)
		}
	}); err != nil {
		slog.Error("views.prune", "err", err)
		os.Exit(1)
	}
	refresher.Start()
	defer refresher.Stop()

	deps := apphttp.Deps{
		Table:        tbl,
		Guard:        guard.New(guard.WithClock(clock)),
		Clock:        clock,
		Sessions:     sessions,
		Users:        users.NewRepository(pool),
		Views:        views,
		LoginLimiter: middleware.NewRateLimiter(cfg.Security.LoginRateLimit, time.Minute, clock),
	}

	mux, err := apphttp.NewMux(deps)
	if err != nil {
		slog.Error("http.mux", "err", err)
		os.Exit(1)
	}
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      apphttp.WithStandardMiddleware(sessions, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http.starting", "addr", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http.listen", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http.shutting_down")
	_ = srv.Shutdown(ctx)
	slog.Info("http.stopped")
}
