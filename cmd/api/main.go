package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/placesweep/internal/adapters/googlemaps"
	"github.com/samirrijal/placesweep/internal/adapters/http"
	"github.com/samirrijal/placesweep/internal/adapters/jsonfile"
	natsadapter "github.com/samirrijal/placesweep/internal/adapters/nats"
	"github.com/samirrijal/placesweep/internal/adapters/nominatim"
	"github.com/samirrijal/placesweep/internal/adapters/postgres"
	"github.com/samirrijal/placesweep/internal/adapters/valkey"
	"github.com/samirrijal/placesweep/internal/core/domain"
	"github.com/samirrijal/placesweep/internal/core/ports"
	"github.com/samirrijal/placesweep/internal/core/usecases"
	"github.com/samirrijal/placesweep/internal/pkg/config"
	"github.com/samirrijal/placesweep/internal/pkg/logging"
	"github.com/samirrijal/placesweep/internal/pkg/metrics"
	"github.com/samirrijal/placesweep/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("placesweep-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Cache. A failed cache stays a nil interface so the services' nil
	// guards keep working.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Adapters
	snapshotRepo := postgres.NewSnapshotRepo(db)

	var exporter ports.SnapshotExporter
	if cfg.Storage.Export {
		exporter = jsonfile.NewExporter(cfg.Storage.OutputDir)
	}

	geocoder := nominatim.New(nominatim.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   time.Duration(cfg.Geocoder.Timeout) * time.Second,
	})

	places := googlemaps.New(googlemaps.Config{
		APIKey:          cfg.Google.APIKey,
		InsightsBaseURL: cfg.Google.InsightsBaseURL,
		PlacesBaseURL:   cfg.Google.PlacesBaseURL,
		InsightsTimeout: time.Duration(cfg.Google.InsightsTimeout) * time.Second,
		DetailsTimeout:  time.Duration(cfg.Google.DetailsTimeout) * time.Second,
		RateQPS:         cfg.Google.RateQPS,
		RateBurst:       cfg.Google.RateBurst,
	})

	// Use cases
	sweepSvc := usecases.NewSweepService(geocoder, places, places, snapshotRepo, exporter, events, cacheSvc, usecases.SweepConfig{
		Decomposer: usecases.DecomposerConfig{
			Cap:             cfg.Sweep.Cap,
			WorklistCeiling: cfg.Sweep.WorklistCeiling,
			MinRadiusM:      cfg.Sweep.MinRadiusM,
		},
		Workers: cfg.Sweep.Workers,
		DefaultFilter: domain.SearchFilter{
			IncludedTypes: cfg.Sweep.DefaultTypes,
			MinRating:     cfg.Sweep.MinRating,
			MaxRating:     cfg.Sweep.MaxRating,
		},
		EstimateRadiusM: cfg.Sweep.EstimateRadiusM,
		CostPerDetail:   cfg.Sweep.CostPerDetail,
		ProgressEvery:   cfg.Sweep.ProgressEvery,
	})
	snapshotSvc := usecases.NewSnapshotService(snapshotRepo, cacheSvc)

	// Sweeps also run out of process (cmd/sweep). Listen for their
	// completion events and drop the stale cached copy.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, cross-process cache eviction disabled", "error", err)
	} else {
		defer sub.Close()
		err = sub.SubscribeSweepEvents(ctx, func(ctx context.Context, ev *domain.SweepEvent) error {
			if ev.Type != "completed" {
				return nil
			}
			return snapshotSvc.InvalidateSlug(ctx, ev.Slug)
		})
		if err != nil {
			slog.Warn("sweep event subscription failed", "error", err)
		}
	}

	deps := &http.Dependencies{
		Sweeps:    sweepSvc,
		Snapshots: snapshotSvc,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
		Config:    cfg,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "PlaceSweep API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
