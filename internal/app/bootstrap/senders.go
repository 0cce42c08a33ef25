package bootstrap

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wolfman30/slot-watch/cmd/mainconfig"
	"github.com/wolfman30/slot-watch/internal/archive"
	appconfig "github.com/wolfman30/slot-watch/internal/config"
	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// newBotAPI is swapped in tests; the real constructor calls getMe.
var newBotAPI = func(token string) (notify.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// BuildTelegramSender returns the chat sender, or nil when no bot token is
// configured or the bot API rejects it.
func BuildTelegramSender(cfg *appconfig.Config, logger *logging.Logger) *notify.TelegramSender {
	if cfg == nil || strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	bot, err := newBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Warn("telegram disabled: bot api init failed", "error", err)
		return nil
	}
	return notify.NewTelegramSender(bot, cfg.TelegramRatePerSecond)
}

// BuildPusher returns the web push sender, or nil without VAPID keys.
func BuildPusher(cfg *appconfig.Config, logger *logging.Logger) *notify.WebPushSender {
	if cfg == nil || !cfg.PushConfigured() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pusher, err := notify.NewWebPushSender(notify.PushCredentials{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
	}, nil)
	if err != nil {
		logger.Warn("web push disabled", "error", err)
		return nil
	}
	return pusher
}

// BuildArchive returns the S3 snapshot archive, or nil without ARCHIVE_BUCKET.
func BuildArchive(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || strings.TrimSpace(cfg.ArchiveBucket) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("archive disabled: failed to load AWS config", "error", err)
		return nil
	}
	return archive.NewStore(mainconfig.NewS3Client(awsCfg, cfg), cfg.ArchiveBucket, logger)
}

// BuildFanout registers a deliverer for every configured channel. In-app
// subscriptions need none; their notification record is the delivery.
func BuildFanout(cfg *appconfig.Config, logger *logging.Logger, telegram *notify.TelegramSender, pusher *notify.WebPushSender, recorder notify.DeliveryRecorder) *notify.Fanout {
	opts := []notify.FanoutOption{
		notify.WithDeliverer(notify.ChannelWebhook, notify.NewWebhookSender(nil)),
	}
	if cfg != nil {
		opts = append(opts, notify.WithConcurrency(cfg.FanoutConcurrency))
	}
	if telegram != nil {
		opts = append(opts, notify.WithDeliverer(notify.ChannelTelegram, telegram))
	}
	if pusher != nil {
		opts = append(opts, notify.WithDeliverer(notify.ChannelWebPush, pusher))
	}
	if recorder != nil {
		opts = append(opts, notify.WithDeliveryRecorder(recorder))
	}
	return notify.NewFanout(logger, opts...)
}
