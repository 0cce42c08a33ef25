package handlers

import (
	"net/http"
	"strings"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

const defaultNotificationPage = 20

// NotificationsHandler lists a user's notification history.
type NotificationsHandler struct {
	store  store.NotificationStore
	logger *logging.Logger
}

func NewNotificationsHandler(notifications store.NotificationStore, logger *logging.Logger) *NotificationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationsHandler{store: notifications, logger: logger}
}

// List returns the newest notifications first.
// GET /api/notifications?userId=&limit=
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		jsonError(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), defaultNotificationPage, store.MaxNotificationsPerUser)

	items, err := h.store.Notifications(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		jsonError(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "total": len(items), "items": items})
}
