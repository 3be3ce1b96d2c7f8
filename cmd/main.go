package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"sunplot/internal/backend"
	"sunplot/internal/cache"
	"sunplot/internal/chart"
	"sunplot/internal/config"
	"sunplot/internal/scheduler"
	"sunplot/internal/server"
)

// Command sunplot serves a solar installation's day chart for an e-ink
// display and ingests the inverter's push telemetry.
//
// The service supports:
//   - Telemetry ingest into a VictoriaMetrics-compatible store
//   - A 600x448 PNG day chart with peak and energy annotations
//   - Daytime scheduling hints for the display's deep sleep
//   - Short-TTL chart caching with background warming
//   - Prometheus metrics
//
// Usage:
//
//	sunplot [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	logger := newLogger(appConfig.Logging)

	zone, err := time.LoadLocation(appConfig.Chart.Timezone)
	if err != nil {
		logger.Fatalf("Failed to load chart timezone %q: %v", appConfig.Chart.Timezone, err)
	}

	// Initialize components
	store := backend.NewClient(appConfig.Backend.URL, appConfig.Backend.Timeout, logger)

	renderer := chart.NewRenderer()
	if appConfig.Chart.FontPath != "" {
		if err := renderer.LoadFont(appConfig.Chart.FontPath, 16); err != nil {
			logger.WithError(err).Warn("Falling back to the built-in font face")
		}
	}

	chartCache, err := cache.New(16, appConfig.Chart.CacheTTL, nil)
	if err != nil {
		logger.Fatalf("Failed to create cache: %v", err)
	}

	svc := server.NewSolarService(store, renderer, chartCache, server.ServiceConfig{
		Zone:     zone,
		APIKey:   appConfig.Ingest.APIKey,
		CacheTTL: appConfig.Chart.CacheTTL,
	}, logger)

	router := server.SetupRouter(svc, server.RouterConfig{
		PathPrefix:     appConfig.Server.PathPrefix,
		RateLimit:      appConfig.Server.RateLimit,
		RateLimitBurst: appConfig.Server.RateLimitBurst,
	}, logger)

	// Create a context that will be canceled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warm := scheduler.NewScheduler(ctx, svc, zone, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port),
		Handler: router,
	}

	errChan := make(chan error, 1)

	// Start the cache warmer
	if err := warm.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer warm.Stop()

	go func() {
		logger.WithFields(logrus.Fields{
			"addr": srv.Addr,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatalf("Service error: %v", err)
	case sig := <-sigChan:
		logger.Printf("Received signal %v, initiating shutdown", sig)
	}

	logger.Println("Gracefully stopping server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not finish cleanly")
	}
	logger.Println("Server stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format != "text" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
