// pdfcourier composes one PDF per subject folder and delivers the pending
// PDFs through the messaging web client on a schedule.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"pdfcourier/internal/api"
	"pdfcourier/internal/browser"
	"pdfcourier/internal/collector"
	"pdfcourier/internal/composer"
	"pdfcourier/internal/config"
	"pdfcourier/internal/delivery"
	"pdfcourier/internal/dispatcher"
	"pdfcourier/internal/health"
	"pdfcourier/internal/observability"
	"pdfcourier/internal/pipeline"
	"pdfcourier/internal/scheduler"
	"pdfcourier/internal/store"
	"syscall"
	"time"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg, err := config.LoadServiceConfig()
	if err != nil {
		return err
	}
	browserCfg := browser.LoadConfigFromEnv()
	deliveryCfg := delivery.LoadConfigFromEnv(svcCfg.DestinationName, svcCfg.Announcement)
	dispatcherCfg := dispatcher.LoadConfigFromEnv()

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	artifacts, err := store.New(store.Config{Dir: svcCfg.OutputDir})
	if err != nil {
		return err
	}

	// Each batch drives a fresh browser session.
	openSession := func(ctx context.Context) (dispatcher.Session, error) {
		return delivery.NewSession(browser.NewChrome(browserCfg), deliveryCfg), nil
	}

	runner := pipeline.NewRunner(
		pipeline.Config{OverwritePending: svcCfg.OverwritePending},
		collector.New(collector.LoadConfigFromEnv(svcCfg.SourceDir)),
		composer.New(composer.Config{AuthorLabel: svcCfg.AuthorLabel}),
		artifacts,
		dispatcher.New(dispatcherCfg, openSession, artifacts, metrics),
		metrics,
	)

	sched, err := scheduler.New(scheduler.Config{
		Schedule:   svcCfg.Schedule,
		RunOnStart: svcCfg.RunOnStart,
	}, runner)
	if err != nil {
		return err
	}

	// Create health checker
	healthChecker := health.NewChecker(map[string]health.ReadinessChecker{
		"store":     health.CheckFunc(func(context.Context) error { return artifacts.Ready() }),
		"scheduler": sched,
	})

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Runs:          runner,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		APIKey:        svcCfg.APIKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY_FILE configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 2)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sched.Start()

	// shutdown stops runs, then closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// No new manual runs once the control API is down.
		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			slog.Warn("Scheduled run cancelled during shutdown", "error", err)
		}
		if err := runner.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Manual run cancelled during shutdown", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Stop accepting connections, then let an in-flight run reach a
	// subject or artifact boundary.
	slog.Info("Starting graceful shutdown")
	shutdown(2 * time.Minute)

	if report, ok := runner.Last(); ok {
		slog.Info("Last run",
			"runId", report.RunID,
			"outcome", report.Outcome,
			"finishedAt", report.FinishedAt,
		)
	}
	slog.Info("Shutdown complete")
	return nil
}
