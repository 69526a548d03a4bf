package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gfduarte/mt5-tickdata/internal/config"
	"github.com/gfduarte/mt5-tickdata/internal/database"
	"github.com/gfduarte/mt5-tickdata/internal/persister"
	"github.com/gfduarte/mt5-tickdata/internal/source"
	"github.com/gfduarte/mt5-tickdata/internal/version"
)

// tickSource is the lifecycle shared by the poll and stream sources.
type tickSource interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "configs/persister.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting persister",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"source_mode", cfg.Source.Mode,
		"batch_size", cfg.Persister.BatchSize,
		"queue_capacity", cfg.Persister.QueueCapacity,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Database.Schema, cfg.Database.Table); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database ready",
		"schema", cfg.Database.Schema,
		"table", cfg.Database.Table,
	)

	// Build the pipeline: sink -> writer -> supervisor
	sink := persister.NewPGSink(pool, cfg.Database.Schema, cfg.Database.Table, logger)

	writer := persister.NewWriter(sink, persister.WriterConfig{
		MaxAttempts:  cfg.Persister.MaxWriteAttempts,
		BackoffBase:  cfg.Persister.BackoffBase,
		BackoffCap:   cfg.Persister.BackoffCap,
		WriteTimeout: cfg.Persister.WriteTimeout,
	}, logger)

	sup := persister.NewSupervisor(persister.Config{
		QueueCapacity: cfg.Persister.QueueCapacity,
		BatchSize:     cfg.Persister.BatchSize,
		BatchAge:      cfg.Persister.BatchAge,
		FlushInterval: cfg.Persister.FlushInterval,
		DrainTimeout:  cfg.Persister.DrainTimeout,
	}, writer, logger)

	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start persister", "error", err)
		os.Exit(1)
	}

	// Start the tick source
	var src tickSource
	switch cfg.Source.Mode {
	case "poll":
		fetcher := source.NewHTTPFetcher(cfg.Source.BridgeURL)
		src = source.NewPoller(source.PollerConfig{
			Symbols:     cfg.Source.Symbols,
			Interval:    cfg.Source.PollInterval,
			Concurrency: cfg.Source.PollConcurrency,
			Timeout:     cfg.Source.PollTimeout,
		}, fetcher, sup, logger)
	case "stream":
		src = source.NewStreamClient(source.StreamConfig{
			URL:           cfg.Source.StreamURL,
			ReconnectBase: cfg.Source.ReconnectBaseDelay,
			ReconnectMax:  cfg.Source.ReconnectMaxDelay,
			ReadTimeout:   cfg.Source.ReadTimeout,
		}, sup, logger)
	}

	if err := src.Start(ctx); err != nil {
		logger.Error("failed to start tick source", "error", err)
		os.Exit(1)
	}

	// Health/stats server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(pool, sup),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("persister running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/healthz", cfg.Health.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the source first so nothing enqueues during the drain.
	if err := src.Stop(shutdownCtx); err != nil {
		logger.Error("tick source shutdown error", "error", err)
	}

	if err := sup.Stop(shutdownCtx); err != nil {
		logger.Error("persister shutdown error", "error", err)
	}

	healthServer.Shutdown(shutdownCtx)

	stats := sup.Stats()
	logger.Info("persister stopped",
		"total_persisted", stats.TotalPersisted,
		"total_rejected", stats.TotalRejected,
		"total_dropped", stats.TotalDropped,
	)
}

// createHealthHandler creates the HTTP handler for health checks and stats.
func createHealthHandler(pool *pgxpool.Pool, sup *persister.Supervisor) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		stats := sup.Stats()
		health.Components["persister"] = map[string]any{
			"state":       stats.State,
			"queue_depth": stats.QueueDepth,
		}
		if stats.State != "running" {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sup.Stats())
	})

	return mux
}
