package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"CapIot.dashboard/internal/config"
	"CapIot.dashboard/internal/controller"
	"CapIot.dashboard/internal/middleware"
	"CapIot.dashboard/internal/repository"
	"CapIot.dashboard/internal/routes"
	"CapIot.dashboard/internal/service"
	"CapIot.dashboard/internal/table"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories, service, and controller
	statsRepo := repository.NewHTTPStatsRepository(cfg.StatsAPIURL, cfg.StatsAPITimeout, logger)

	var recorder repository.SnapshotRecorder = repository.NopRecorder{}
	healthChecks := map[string]func(context.Context) error{}
	if cfg.InfluxEnabled() {
		influx := repository.NewInfluxDBRepository(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket, logger)
		setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := influx.EnsureBucket(setupCtx)
		cancel()
		if err != nil {
			influx.Close()
			return fmt.Errorf("preparing InfluxDB: %w", err)
		}
		recorder = influx
		healthChecks["influxdb"] = influx.Ping
		logger.Info("recording snapshots to InfluxDB", "url", cfg.InfluxDBURL, "bucket", cfg.InfluxDBBucket)
	}
	defer recorder.Close()

	var clock service.Clock = service.SystemClock{}
	if !cfg.Reference.IsZero() {
		clock = service.FixedClock{Time: cfg.Reference}
		logger.Info("dashboard pinned to a reference date", "date", cfg.Reference.Format("2006-01-02"))
	}

	svc := service.NewDashboardService(statsRepo, service.Options{
		Clock:       clock,
		Recorder:    recorder,
		Concurrency: cfg.FetchConcurrency,
		Logger:      logger,
	})
	dashboard := controller.NewDashboardController(svc, table.NewRenderer(table.ParsePercentMode(cfg.PercentMode)), controller.Config{
		ApartmentID:  cfg.ApartmentID,
		Logger:       logger,
		HealthChecks: healthChecks,
	})

	auth, err := middleware.NewAuth(middleware.AuthConfig{Issuer: cfg.Auth0Issuer, Audience: cfg.Auth0Audience}, logger)
	if err != nil {
		return err
	}

	router := routes.SetupRouter(dashboard, auth, logger)

	// CORS setup
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.StatsAPITimeout*2 + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", "url", fmt.Sprintf("http://localhost:%s", cfg.Port), "stats_api", cfg.StatsAPIURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
