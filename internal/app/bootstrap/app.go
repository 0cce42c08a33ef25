// Package bootstrap wires the long-lived components shared by the API server
// and the sync lambda.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/slot-watch/internal/archive"
	appconfig "github.com/wolfman30/slot-watch/internal/config"
	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/observability/metrics"
	"github.com/wolfman30/slot-watch/internal/query"
	"github.com/wolfman30/slot-watch/internal/report"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// App is the assembled process. Optional collaborators are nil when their
// configuration is missing.
type App struct {
	Config   *appconfig.Config
	Storage  *Storage
	Metrics  *metrics.SlotMetrics
	Engine   *query.Engine
	Runner   *syncer.Runner
	Telegram *notify.TelegramSender
	Pusher   *notify.WebPushSender
	Archive  *archive.Store
}

// Build assembles the App. reg receives the slot metrics; nil skips metrics.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: app requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}

	storage, err := BuildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Storage: storage}
	if reg != nil {
		app.Metrics = metrics.NewSlotMetrics(reg)
	}

	engineOpts := []query.Option{query.WithLogger(logger.Component("query"))}
	if app.Metrics != nil {
		engineOpts = append(engineOpts, query.WithRecorder(app.Metrics))
	}
	app.Engine, err = query.NewEngine(cfg.QueryCacheSize, engineOpts...)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Telegram = BuildTelegramSender(cfg, logger)
	app.Pusher = BuildPusher(cfg, logger)
	app.Archive = BuildArchive(ctx, cfg, logger)

	fetcher := report.NewFetcher(cfg.ReportFetchTimeout,
		report.WithHomeURL(cfg.ReportHomeURL),
		report.WithExtractorURL(cfg.ReportExtractorURL),
		report.WithUserAgent(cfg.ReportUserAgent),
		report.WithLogger(logger.Component("report")),
	)

	var recorder notify.DeliveryRecorder
	if app.Metrics != nil {
		recorder = app.Metrics
	}
	fanout := BuildFanout(cfg, logger, app.Telegram, app.Pusher, recorder)

	var opts []syncer.Option
	if app.Metrics != nil {
		opts = append(opts, syncer.WithMetrics(app.Metrics))
	}
	if app.Archive != nil {
		opts = append(opts, syncer.WithArchiver(app.Archive))
	}
	if storage.RunLog != nil {
		opts = append(opts, syncer.WithRunRecorder(storage.RunLog))
	}
	app.Runner, err = syncer.NewRunner(fetcher, syncer.Stores{
		Snapshots:     storage.Snapshots,
		Subscriptions: storage.Subscriptions,
		Notifications: storage.Notifications,
	}, fanout, logger, opts...)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	logger.Info("app assembled",
		"storage", storage.Label,
		"telegram", app.Telegram != nil,
		"web_push", app.Pusher != nil,
		"archive", app.Archive != nil,
		"run_log", storage.RunLog != nil,
	)
	return app, nil
}

// Close releases the storage connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.Storage.Close()
}
