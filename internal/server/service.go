// Package server wires the HTTP surface of the service: the e-ink
// chart, the telemetry ingest endpoint and the daytime helper used by
// the display firmware to schedule its deep sleep.
package server

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"sunplot/internal/backend"
	"sunplot/internal/cache"
	"sunplot/internal/chart"
	"sunplot/internal/daytime"
)

// seriesStep is the sampling step of the rendered power curve.
const seriesStep = 2 * time.Minute

// chartCacheKey identifies the one cached chart; no query parameters
// vary the response.
const chartCacheKey = "/eink.png"

// SeriesBackend defines the interface for telemetry store access.
type SeriesBackend interface {
	// FetchSeries returns the power curve for the window; an error means
	// the store could not answer, an empty series means it had no data.
	FetchSeries(ctx context.Context, w daytime.Window, step time.Duration) ([]backend.Sample, error)

	// FetchPeak returns the window's peak, or the absent sentinel.
	FetchPeak(ctx context.Context, w daytime.Window) backend.Peak

	// FetchEnergyTotal returns the watt-hours produced so far, 0 if unknown.
	FetchEnergyTotal(ctx context.Context, w daytime.Window) int64

	// Write records one telemetry point.
	Write(ctx context.Context, p backend.Point) error
}

// ServiceConfig holds the per-deployment knobs of the service.
type ServiceConfig struct {
	Zone     *time.Location
	APIKey   string
	CacheTTL time.Duration
}

// SolarService encapsulates the render and ingest business logic.
type SolarService struct {
	backend  SeriesBackend
	renderer *chart.Renderer
	cache    *cache.TTLCache
	zone     *time.Location
	apiKey   string
	cacheTTL time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

// NewSolarService creates a new service instance.
func NewSolarService(
	b SeriesBackend,
	renderer *chart.Renderer,
	ttlCache *cache.TTLCache,
	cfg ServiceConfig,
	logger *logrus.Logger,
) *SolarService {
	return &SolarService{
		backend:  b,
		renderer: renderer,
		cache:    ttlCache,
		zone:     cfg.Zone,
		apiKey:   cfg.APIKey,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// renderChart runs the full pipeline: resolve today's daytime window,
// fetch the curve, decorate with best-effort peak/energy, encode PNG.
// A failed series fetch fails the render.
func (s *SolarService) renderChart(ctx context.Context) ([]byte, error) {
	w := daytime.Resolve(s.now(), s.zone)

	series, err := s.backend.FetchSeries(ctx, w, seriesStep)
	if err != nil {
		return nil, err
	}

	peak := s.backend.FetchPeak(ctx, w)
	energy := s.backend.FetchEnergyTotal(ctx, w)

	return s.renderer.PNG(w, series, peak, energy)
}

// ChartPNG returns the current chart, served from the cache when a
// fresh enough render exists.
func (s *SolarService) ChartPNG(ctx context.Context) ([]byte, error) {
	return s.cache.GetOrFill(chartCacheKey, func() ([]byte, error) {
		return s.renderChart(ctx)
	})
}
