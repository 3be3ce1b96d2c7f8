package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	middleware "sunplot/internal/server/middlewares"
)

// RouterConfig holds configuration options for the HTTP router.
type RouterConfig struct {
	PathPrefix     string  // optional prefix all routes are mounted under
	RateLimit      float64 // requests per second
	RateLimitBurst int     // maximum burst size for rate limiting
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimit:      5.0,
		RateLimitBurst: 10,
	}
}

// SetupRouter builds the router with the full middleware chain.
func SetupRouter(svc *SolarService, cfg RouterConfig, logger *logrus.Logger) *mux.Router {
	r := mux.NewRouter()

	// request ID first so the rate limiter's rejections are logged with
	// one too; metrics last so it sees the final status
	r.Use(
		middleware.RequestID,
		middleware.RateLimit(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		middleware.Logging(logger),
		middleware.Metrics,
	)

	routes := r
	if cfg.PathPrefix != "" {
		routes = r.PathPrefix(cfg.PathPrefix).Subrouter()
	}

	routes.HandleFunc("/eink.png", svc.handleChart).Methods(http.MethodGet)
	routes.HandleFunc("/solardata", svc.handleIngest).Methods(http.MethodPost)
	routes.HandleFunc("/untildaytime/{region}/{city}", svc.handleUntilDaytime).Methods(http.MethodGet)
	routes.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	routes.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
