package refresh

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/salesboard/backend/internal/cache"
	"github.com/salesboard/backend/internal/timewindow"
	"github.com/salesboard/backend/internal/types"
)

// Dashboard is the pipeline surface the refresher drives.
type Dashboard interface {
	Dashboard(ctx context.Context, kind timewindow.Kind, days int) *types.DashboardPayload
}

// Refresher periodically recomputes the common dashboard views so
// browser polls land on a warm cache. The dashboard stays poll-only;
// this only moves the upstream fetch off the request path.
type Refresher struct {
	svc      Dashboard
	cache    *cache.ResultCache
	interval time.Duration
	logger   zerolog.Logger
}

// NewRefresher creates a new Refresher
func NewRefresher(svc Dashboard, resultCache *cache.ResultCache, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		svc:      svc,
		cache:    resultCache,
		interval: interval,
		logger:   logger.With().Str("component", "refresher").Logger(),
	}
}

// Start begins the warm loop and blocks until the context is done.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("refresher started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("refresher stopped")
			return

		case <-ticker.C:
			start := time.Now()

			today := r.svc.Dashboard(ctx, timewindow.KindToday, 0)
			week := r.svc.Dashboard(ctx, timewindow.KindWeeklyFriday, 0)
			swept := r.cache.Sweep()

			event := r.logger.Debug()
			if today.Error != "" || week.Error != "" {
				event = r.logger.Warn().
					Str("today_error", today.Error).
					Str("week_error", week.Error)
			}
			event.
				Int("today_agents", len(today.PerAgent)).
				Int("week_agents", len(week.PerAgent)).
				Int("swept", swept).
				Dur("elapsed", time.Since(start)).
				Msg("views refreshed")
		}
	}
}
