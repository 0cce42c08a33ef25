package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/slot-watch/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/slot-watch/internal/http/middleware"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	Health          http.HandlerFunc
	Slots           *handlers.SlotsHandler
	Subscriptions   *handlers.SubscriptionsHandler
	Notifications   *handlers.NotificationsHandler
	Sync            *handlers.SyncHandler
	Push            *handlers.PushHandler
	TelegramWebhook *handlers.TelegramWebhookHandler
	MetricsHandler  http.Handler
	// CORS is enabled when AllowedOrigins is non-empty.
	CORS            httpmiddleware.CORSConfig

	AdminAuth             httpmiddleware.AdminAuthConfig
	CronSecret            string
	AllowOpenCron         bool
	TelegramWebhookSecret string

	// SlotsRateLimiter guards the public query endpoint (optional).
	SlotsRateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORS))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Slots != nil {
			api.Group(func(public chi.Router) {
				if cfg.SlotsRateLimiter != nil {
					public.Use(httpmiddleware.RateLimit(cfg.SlotsRateLimiter))
				}
				public.Get("/slots", cfg.Slots.GetSlots)
			})
		}
		if cfg.Subscriptions != nil {
			api.Get("/subscriptions", cfg.Subscriptions.List)
			api.Post("/subscriptions", cfg.Subscriptions.Upsert)
			api.Delete("/subscriptions", cfg.Subscriptions.Disable)
		}
		if cfg.Notifications != nil {
			api.Get("/notifications", cfg.Notifications.List)
		}
		if cfg.TelegramWebhook != nil {
			api.With(httpmiddleware.TelegramSecret(cfg.TelegramWebhookSecret)).
				Post("/telegram/webhook", cfg.TelegramWebhook.Handle)
		}
		if cfg.Push != nil {
			api.Get("/push/public-key", cfg.Push.PublicKey)
		}

		if cfg.Sync != nil {
			api.With(httpmiddleware.CronAuth(cfg.CronSecret, cfg.AllowOpenCron)).
				Get("/cron/daily-sync", cfg.Sync.Cron)
		}

		api.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminAuth(cfg.AdminAuth))
			if cfg.Sync != nil {
				admin.Post("/sync", cfg.Sync.Manual)
				admin.Get("/sync/runs", cfg.Sync.Runs)
			}
			if cfg.Push != nil {
				admin.Post("/push/test", cfg.Push.Test)
			}
		})
	})

	return r
}
