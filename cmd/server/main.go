// Package main is the entry point for the StayLedger calendar sync server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/stayledger/backend/internal/api"
	"github.com/stayledger/backend/internal/config"
	"github.com/stayledger/backend/internal/conflict"
	"github.com/stayledger/backend/internal/ical"
	"github.com/stayledger/backend/internal/storage"
	"github.com/stayledger/backend/internal/sync"
	"github.com/stayledger/backend/internal/ws"
	"github.com/stayledger/backend/pkg/logger"
	"github.com/stayledger/backend/pkg/metrics"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", "path", *configPath, "error", err)
	}

	// Health check mode for container HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Listen); err != nil {
			log.Fatal("health check failed", "error", err)
		}
		os.Exit(0)
	}

	log.Info("starting calendar sync server", "version", version, "listen", cfg.Listen)

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("failed to create data directory", "dir", cfg.DataDir, "error", err)
	}
	db, err := storage.NewDB(filepath.Join(cfg.DataDir, "stayledger.db"))
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, log); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	// Initialize WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run()

	// Initialize repositories
	propertyRepo := storage.NewPropertyRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	blockRepo := storage.NewBlockRepository(db)
	connectionRepo := storage.NewConnectionRepository(db)

	// Initialize sync engine
	m := metrics.New("stayledger")
	parser := ical.NewParser(ical.NewClassifier(nil, cfg.AmbiguousBlockMaxNights))
	fetcher := sync.NewFetcher(time.Duration(cfg.FetchTimeoutSeconds) * time.Second)
	syncService := sync.NewService(
		bookingRepo,
		blockRepo,
		connectionRepo,
		propertyRepo,
		parser,
		fetcher,
		log,
		m,
	)

	resolver := conflict.NewResolver(bookingRepo, log)
	broadcaster := ws.NewEventBroadcaster(hub, log)

	// Initialize scheduler for periodic syncs
	scheduler := sync.NewScheduler(syncService, connectionRepo, broadcaster, log)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Warn("failed to start sync scheduler", "error", err)
	}

	router := api.NewRouter(api.Deps{
		DB:          db,
		Properties:  propertyRepo,
		Bookings:    bookingRepo,
		Blocks:      blockRepo,
		Connections: connectionRepo,
		SyncService: syncService,
		Scheduler:   scheduler,
		Resolver:    resolver,
		Hub:         hub,
		Log:         log,
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.Listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown error", "error", err)
	}

	log.Info("server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
