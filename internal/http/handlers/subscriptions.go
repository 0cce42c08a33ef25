package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// SubscriptionsHandler manages user subscriptions.
type SubscriptionsHandler struct {
	store  store.SubscriptionStore
	logger *logging.Logger
	now    func() time.Time
	newID  func() string
}

func NewSubscriptionsHandler(subs store.SubscriptionStore, logger *logging.Logger) *SubscriptionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SubscriptionsHandler{
		store:  subs,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return "sub_" + uuid.New().String() },
	}
}

type subscriptionRequest struct {
	ID               string                   `json:"id"`
	UserID           string                   `json:"userId"`
	Query            string                   `json:"query"`
	Channel          string                   `json:"channel"`
	WebhookURL       string                   `json:"webhookUrl"`
	TelegramChatID   string                   `json:"telegramChatId"`
	PushSubscription *notify.PushSubscription `json:"pushSubscription"`
}

// List returns a user's subscriptions.
// GET /api/subscriptions?userId=
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		jsonError(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}
	items, err := h.store.Subscriptions(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list subscriptions", "error", err, "user_id", userID)
		jsonError(w, "failed to list subscriptions", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []notify.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "total": len(items), "items": items})
}

// Upsert creates a subscription, or replaces the one addressed by id.
// POST /api/subscriptions
func (h *SubscriptionsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	q := strings.TrimSpace(req.Query)
	if userID == "" || q == "" {
		jsonError(w, "userId and query are required", http.StatusBadRequest)
		return
	}

	rawChannel := strings.TrimSpace(req.Channel)
	if rawChannel == "" {
		rawChannel = string(notify.ChannelInApp)
	}
	channel, err := notify.ParseChannel(rawChannel)
	if err != nil {
		jsonError(w, "channel must be one of: in_app, webhook, telegram, web_push", http.StatusBadRequest)
		return
	}
	target, err := notify.NewTarget(channel, req.WebhookURL, req.TelegramChatID, req.PushSubscription)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := h.now().UTC()
	sub := notify.Subscription{
		ID:        strings.TrimSpace(req.ID),
		UserID:    userID,
		Query:     q,
		Target:    target,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sub.ID == "" {
		sub.ID = h.newID()
	} else {
		existing, err := h.store.Subscription(r.Context(), sub.ID)
		switch {
		case err == nil:
			if existing.UserID != userID {
				jsonError(w, "subscription belongs to another user", http.StatusForbidden)
				return
			}
			sub.CreatedAt = existing.CreatedAt
		case !errors.Is(err, store.ErrNotFound):
			h.logger.Error("failed to load subscription", "error", err, "subscription_id", sub.ID)
			jsonError(w, "failed to save subscription", http.StatusInternalServerError)
			return
		}
	}

	if err := h.store.UpsertSubscription(r.Context(), sub); err != nil {
		h.logger.Error("failed to save subscription", "error", err, "subscription_id", sub.ID)
		jsonError(w, "failed to save subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": sub})
}

// Disable soft-deletes a subscription.
// DELETE /api/subscriptions?id=
func (h *SubscriptionsHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		jsonError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}
	item, err := h.store.DisableSubscription(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && item == nil) {
		jsonError(w, "Subscription not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to disable subscription", "error", err, "subscription_id", id)
		jsonError(w, "failed to disable subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": item})
}
