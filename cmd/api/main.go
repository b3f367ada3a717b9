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

	"github.com/folimar/solkat/internal/adapters/http"
	natsadapter "github.com/folimar/solkat/internal/adapters/nats"
	"github.com/folimar/solkat/internal/adapters/postgres"
	"github.com/folimar/solkat/internal/adapters/valkey"
	"github.com/folimar/solkat/internal/core/ports"
	"github.com/folimar/solkat/internal/core/usecases"
	"github.com/folimar/solkat/internal/pkg/config"
	"github.com/folimar/solkat/internal/pkg/logging"
	"github.com/folimar/solkat/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("solkat-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. The API keeps serving without it, only slower.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	roofRepo := postgres.NewRoofRepo(db)
	buildingRepo := postgres.NewBuildingRepo(db)
	potentialRepo := postgres.NewPotentialRepo(db)
	datasetRepo := postgres.NewDatasetRepo(db)

	// Use cases
	lookupSvc := usecases.NewLookupService(roofRepo, cacheSvc)
	buildingSvc := usecases.NewBuildingService(buildingRepo, cacheSvc)
	potentialSvc := usecases.NewPotentialService(potentialRepo, nil, nil)
	datasetSvc := usecases.NewDatasetService(datasetRepo)

	deps := &http.Dependencies{
		Lookups:    lookupSvc,
		Buildings:  buildingSvc,
		Potentials: potentialSvc,
		Datasets:   datasetSvc,
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
		StaticDir:  cfg.Server.StaticDir,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Solkat API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	// The map viewer may be hosted anywhere, so the read-only API is open.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
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
