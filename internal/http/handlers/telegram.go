package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wolfman30/slot-watch/pkg/logging"
)

// UpdateHandler processes one telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// TelegramWebhookHandler receives bot updates.
type TelegramWebhookHandler struct {
	bot    UpdateHandler
	logger *logging.Logger
}

func NewTelegramWebhookHandler(bot UpdateHandler, logger *logging.Logger) *TelegramWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelegramWebhookHandler{bot: bot, logger: logger}
}

// Handle always answers 200 so telegram does not redeliver; malformed updates
// are logged and dropped.
// POST /api/telegram/webhook
func (h *TelegramWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		h.logger.Warn("failed to decode telegram update", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	h.logger.Debug("telegram update received", "update_id", update.UpdateID)
	h.bot.HandleUpdate(r.Context(), update)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
