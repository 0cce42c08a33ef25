package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone is returned when the push service reports the
// subscription expired or unsubscribed.
var ErrSubscriptionGone = errors.New("notify: push subscription gone")

// PushCredentials are the VAPID keys, configured once per process.
type PushCredentials struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Configured reports whether both keys are present.
func (c PushCredentials) Configured() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// PushPayload is the JSON the service worker receives.
type PushPayload struct {
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Data  PushPayloadData `json:"data"`
}

// PushPayloadData identifies the notification behind a push.
type PushPayloadData struct {
	ID             string `json:"id,omitempty"`
	UserID         string `json:"userId"`
	Kind           string `json:"kind,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

type pushFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// WebPushSender delivers encrypted web push messages.
type WebPushSender struct {
	creds  PushCredentials
	client *http.Client
	ttl    int
	send   pushFunc
}

// NewWebPushSender validates creds and returns a sender.
func NewWebPushSender(creds PushCredentials, client *http.Client) (*WebPushSender, error) {
	if !creds.Configured() {
		return nil, errors.New("notify: vapid keys not configured")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebPushSender{
		creds:  creds,
		client: client,
		ttl:    24 * 60 * 60,
		send:   webpush.SendNotificationWithContext,
	}, nil
}

// PublicKey is the VAPID key browsers subscribe with.
func (s *WebPushSender) PublicKey() string { return s.creds.PublicKey }

// Push sends payload to one browser subscription.
func (s *WebPushSender) Push(ctx context.Context, sub PushSubscription, payload PushPayload) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal push payload: %w", err)
	}
	resp, err := s.send(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Keys.Auth, P256dh: sub.Keys.P256dh},
	}, &webpush.Options{
		HTTPClient: s.client,
		// The library adds the mailto: scheme itself.
		Subscriber:      strings.TrimPrefix(s.creds.Subject, "mailto:"),
		VAPIDPublicKey:  s.creds.PublicKey,
		VAPIDPrivateKey: s.creds.PrivateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return fmt.Errorf("notify: web push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("notify: push service returned status %d", resp.StatusCode)
	}
	return nil
}

// Deliver implements Deliverer.
func (s *WebPushSender) Deliver(ctx context.Context, target Target, n Notification) error {
	push, ok := target.(WebPush)
	if !ok {
		return fmt.Errorf("%w: web push sender got %s target", ErrInvalidTarget, target.Channel())
	}
	return s.Push(ctx, push.Subscription, PushPayload{
		Title: n.Title,
		Body:  n.Message,
		Data:  PushPayloadData{ID: n.ID, UserID: n.UserID},
	})
}
