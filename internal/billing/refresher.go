package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher reloads the live sessions' stores on a cron schedule.
type Refresher struct {
	Cron    *cron.Cron
	stores  func() []*Store
	query   Query
	timeout time.Duration
	log     *slog.Logger
}

// NewRefresher refreshes whatever stores returns at each run.
func NewRefresher(stores func() []*Store, q Query, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		Cron:    cron.New(),
		stores:  stores,
		query:   q,
		timeout: 30 * time.Second,
		log:     log,
	}
}

// Register schedules the refresh job. spec is a standard cron expression or descriptor.
func (r *Refresher) Register(spec string) error {
	if _, err := r.Cron.AddFunc(spec, r.run); err != nil {
		return fmt.Errorf("register billing refresh: %w", err)
	}
	return nil
}

// Run refreshes every store once, synchronously. A failing store does not
// stop the others.
func (r *Refresher) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	stores := r.stores()
	var errs []error
	for _, s := range stores {
		if err := s.RefreshAll(ctx, r.query); err != nil {
			errs = append(errs, err)
		}
	}
	r.log.Info("billing.refreshed",
		"stores", len(stores),
		"failed", len(errs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return errors.Join(errs...)
}

func (r *Refresher) run() {
	if err := r.Run(context.Background()); err != nil {
		r.log.Warn("billing.refresh_failed", "err", err)
	}
}

func (r *Refresher) Start() { r.Cron.Start() }

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.Cron.Stop().Done()
}
