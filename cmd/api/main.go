package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/slot-watch/internal/api/router"
	appbootstrap "github.com/wolfman30/slot-watch/internal/app/bootstrap"
	"github.com/wolfman30/slot-watch/internal/bot"
	appconfig "github.com/wolfman30/slot-watch/internal/config"
	"github.com/wolfman30/slot-watch/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/slot-watch/internal/http/middleware"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

const (
	slotsRatePerSecond = 2
	slotsBurst         = 10
	limiterIdleTTL     = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting slot-watch API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, reg := setupMetrics()
	app, err := appbootstrap.Build(ctx, cfg, logger, reg)
	if err != nil {
		logger.Error("failed to assemble app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	limiter := httpmiddleware.NewRateLimiter(slotsRatePerSecond, slotsBurst)
	go evictIdleClients(ctx, limiter, time.Minute, limiterIdleTTL)

	workerDone := startSyncWorker(ctx, app.Runner, cfg.SyncInterval, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildRouter(app, logger, metricsHandler, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if workerDone != nil {
		select {
		case <-workerDone:
		case <-shutdownCtx.Done():
			logger.Warn("sync worker did not stop before shutdown deadline")
		}
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns the /metrics handler over a private registry that
// also carries the Go runtime and process collectors.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), reg
}

func buildRouter(app *appbootstrap.App, logger *logging.Logger, metricsHandler http.Handler, limiter *httpmiddleware.RateLimiter) http.Handler {
	cfg := app.Config
	st := app.Storage

	slotsHandler := handlers.NewSlotsHandler(st.Snapshots, app.Runner, app.Engine, logger)

	var history handlers.RunHistory
	if st.RunLog != nil {
		history = st.RunLog
	}

	var pusher handlers.Pusher
	if app.Pusher != nil {
		pusher = app.Pusher
	}

	var telegramWebhook *handlers.TelegramWebhookHandler
	if app.Telegram != nil {
		var opts []bot.Option
		if app.Metrics != nil {
			opts = append(opts, bot.WithCommandRecorder(app.Metrics))
		}
		botHandler := bot.NewHandler(app.Telegram, slotsHandler, app.Runner, st.Subscriptions, logger, opts...)
		telegramWebhook = handlers.NewTelegramWebhookHandler(botHandler, logger)
	}

	allowOpen := !isProduction(cfg.Env)
	return router.New(&router.Config{
		Logger: logger,
		Health: handlers.Health(handlers.HealthInfo{
			Storage:            st.Label,
			PushConfigured:     app.Pusher != nil,
			TelegramConfigured: app.Telegram != nil,
			ArchiveConfigured:  app.Archive.Enabled(),
		}, time.Now),
		Slots:           slotsHandler,
		Subscriptions:   handlers.NewSubscriptionsHandler(st.Subscriptions, logger),
		Notifications:   handlers.NewNotificationsHandler(st.Notifications, logger),
		Sync:            handlers.NewSyncHandler(app.Runner, history, logger),
		Push:            handlers.NewPushHandler(pusher, st.Subscriptions, logger),
		TelegramWebhook: telegramWebhook,
		MetricsHandler:  metricsHandler,
		CORS: httpmiddleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			MaxAge:         cfg.CORSMaxAge,
		},
		AdminAuth: httpmiddleware.AdminAuthConfig{
			Token:     cfg.AdminAPIToken,
			JWTSecret: cfg.AdminJWTSecret,
			AllowOpen: allowOpen,
		},
		CronSecret:            cfg.CronSecret,
		AllowOpenCron:         allowOpen,
		TelegramWebhookSecret: cfg.TelegramWebhookSecret,
		SlotsRateLimiter:      limiter,
	})
}

// startSyncWorker runs the in-process ticker when SYNC_INTERVAL is set. The
// returned channel closes once the worker has stopped.
func startSyncWorker(ctx context.Context, runner *syncer.Runner, interval time.Duration, logger *logging.Logger) <-chan struct{} {
	if interval <= 0 || runner == nil {
		logger.Info("sync worker disabled (SYNC_INTERVAL not set)")
		return nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		syncer.NewWorker(runner, interval).Start(ctx)
	}()
	return done
}

func evictIdleClients(ctx context.Context, limiter *httpmiddleware.RateLimiter, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Evict(now.Add(-ttl))
		}
	}
}

func isProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return true
	}
	return false
}
