package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// Pusher sends web push messages.
type Pusher interface {
	PublicKey() string
	Push(ctx context.Context, sub notify.PushSubscription, payload notify.PushPayload) error
}

// PushHandler exposes the VAPID key and a test push for admins.
type PushHandler struct {
	pusher Pusher
	subs   store.SubscriptionStore
	logger *logging.Logger
}

// NewPushHandler creates a PushHandler. pusher is nil when VAPID keys are missing.
func NewPushHandler(pusher Pusher, subs store.SubscriptionStore, logger *logging.Logger) *PushHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PushHandler{pusher: pusher, subs: subs, logger: logger}
}

// PublicKey returns the VAPID public key.
// GET /api/push/public-key
func (h *PushHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	if h.pusher == nil || h.pusher.PublicKey() == "" {
		jsonError(w, "VAPID public key is not configured", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.pusher.PublicKey()})
}

type pushTestRequest struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Test pushes a message to every active web_push subscription, optionally of one user.
// POST /api/push/test
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h.pusher == nil {
		jsonError(w, "VAPID keys are not configured", http.StatusBadRequest)
		return
	}
	var req pushTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Ima li terminaaa!?"
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = "Test push notification"
	}

	all, err := h.subs.Subscriptions(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list subscriptions for push test", "error", err)
		jsonError(w, "failed to list subscriptions", http.StatusInternalServerError)
		return
	}

	var targets []notify.Subscription
	for _, sub := range all {
		if _, ok := sub.Target.(notify.WebPush); ok && sub.Active {
			targets = append(targets, sub)
		}
	}

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(8)
	for _, sub := range targets {
		push := sub.Target.(notify.WebPush)
		payload := notify.PushPayload{
			Title: title,
			Body:  message,
			Data:  notify.PushPayloadData{UserID: sub.UserID, Kind: "test", SubscriptionID: sub.ID},
		}
		g.Go(func() error {
			if err := h.pusher.Push(r.Context(), push.Subscription, payload); err != nil {
				h.logger.Warn("test push failed", "error", err, "subscription_id", payload.Data.SubscriptionID)
				failed.Add(1)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	var userField any
	if userID != "" {
		userField = userID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"userId":       userField,
		"totalTargets": len(targets),
		"sent":         sent.Load(),
		"failed":       failed.Load(),
	})
}
