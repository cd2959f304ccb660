package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/krishanraja/adfixus-sales-sub000/internal/capture"
	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/config"
	"github.com/krishanraja/adfixus-sales-sub000/internal/db"
	"github.com/krishanraja/adfixus-sales-sub000/internal/handlers"
	"github.com/krishanraja/adfixus-sales-sub000/internal/middleware"
	"github.com/krishanraja/adfixus-sales-sub000/internal/scan"
	"github.com/krishanraja/adfixus-sales-sub000/internal/scoring"
	"github.com/krishanraja/adfixus-sales-sub000/internal/telemetry"
	"github.com/krishanraja/adfixus-sales-sub000/internal/traffic"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// lifetime bounds the background scan loops; cancelled on shutdown.
	lifetime, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := telemetry.NewRegistry()
	vendorCatalog := catalog.Default()

	capturer := capture.NewAdapter(cfg.BrowserlessURL, vendorCatalog, registry)
	if cfg.BrowserlessURL == "" {
		slog.Warn("BROWSERLESS_URL not set, every capture will use the static fallback")
	}

	estimator := traffic.NewEstimator(cfg.RankAPIURL, registry)
	if cfg.RankAPIURL == "" {
		slog.Warn("RANK_API_URL not set, traffic estimates will be empty")
	}

	store := db.NewStore(database)
	engine := scoring.NewEngine(scoring.DefaultPolicy())
	orchestrator := scan.NewOrchestrator(lifetime, store, capturer, estimator, engine, vendorCatalog)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.RequestContext())
	router.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewInMemoryRateLimiter()
	slog.Info("Rate limiter initialized", "backend", "in-memory", "max_jobs", middleware.RateLimitMaxJobs, "window_seconds", middleware.RateLimitWindow)

	scanHandler := handlers.NewScanHandler(orchestrator, store)
	healthHandler := handlers.NewHealthHandler(database, registry, estimator)

	router.POST("/api/scan", middleware.ScanSubmitLimit(rateLimiter), scanHandler.Submit)
	router.GET("/api/scan/:id", scanHandler.Status)
	router.GET("/api/scan/:id/results", scanHandler.Results)
	router.GET("/api/scan/:id/summary", scanHandler.Summary)
	router.GET("/api/health", healthHandler.HealthCheck)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	slog.Info("Starting addressability scanner", "address", addr, "version", cfg.AppVersion)

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		<-lifetime.Done()
		slog.Info("Shutdown signal received")
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
