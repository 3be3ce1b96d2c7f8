// Package scheduler keeps the chart cache warm so the display's poll
// never waits on a cold render.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"sunplot/internal/daytime"
)

// ChartWarmer renders (or returns the cached) chart.
type ChartWarmer interface {
	ChartPNG(ctx context.Context) ([]byte, error)
}

type Scheduler struct {
	ctx    context.Context
	warmer ChartWarmer
	zone   *time.Location
	logger *logrus.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewScheduler(ctx context.Context, warmer ChartWarmer, zone *time.Location, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		ctx:    ctx,
		warmer: warmer,
		zone:   zone,
		logger: logger,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start the scheduler
func (s *Scheduler) Start() error {
	// Re-render once a minute, matching the cache TTL
	_, err := s.cron.AddFunc("* * * * *", s.warm)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// warm renders the chart into the cache. Outside the daytime window
// nothing polls the display, so there is nothing to keep warm.
func (s *Scheduler) warm() {
	if _, isDaytime := daytime.UntilDaytime(s.now(), s.zone); !isDaytime {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	if _, err := s.warmer.ChartPNG(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to warm chart cache")
	}
}

// Stop the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
