package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/api"
	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/db"
	"ringer-dashboard/internal/geo"
	"ringer-dashboard/internal/metrics"
	"ringer-dashboard/internal/notification"
	"ringer-dashboard/internal/store"
	"ringer-dashboard/internal/timeline"
	"ringer-dashboard/internal/upstream"
	"ringer-dashboard/internal/watcher"
)

const sessionPurgeInterval = time.Hour

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "ringerd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Upstream.BaseURL == "" {
		logger.Fatalf("upstream.base_url must be configured")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys not configured; push notifications and the watcher are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var (
		rec      = metrics.Noop()
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rec = metrics.New(registry)
		gatherer = registry
	}

	formatter := timeline.NewFormatter(cfg.Display.Location(), cfg.Display.Hour12)
	client := upstream.NewClient(cfg.Upstream, rec)
	service := dashboard.NewService(client, formatter, cfg.Display.DefaultLookback)

	if webpushOptions != nil {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, formatter, rec)
		pool.Start(ctx)
		watcherSvc := watcher.NewService(cfg.Watcher, appStore, client, pool, rec)
		go watcherSvc.Run(ctx)
	}

	go purgeSessions(ctx, logger, appStore)

	handler := api.NewHandler(api.Deps{
		Store:    appStore,
		Service:  service,
		Auth:     client,
		Geocoder: geo.NewGeocoder(cfg.Geocoder),
		WebPush:  webpushOptions,
		Config:   cfg,
	})

	router := api.NewRouter(cfg, handler, rec, gatherer)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// purgeSessions removes expired sessions until ctx is cancelled.
func purgeSessions(ctx context.Context, logger *log.Logger, st store.Store) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.PurgeExpiredSessions(ctx, time.Now())
			if err != nil {
				logger.Printf("session purge failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Printf("purged %d expired sessions", n)
			}
		}
	}
}
