package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Channel names the delivery path of a subscription.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelWebhook  Channel = "webhook"
	ChannelTelegram Channel = "telegram"
	ChannelWebPush  Channel = "web_push"
)

// ErrInvalidTarget is returned when a channel is unknown or its address is missing.
var ErrInvalidTarget = errors.New("notify: invalid delivery target")

// ParseChannel validates a wire channel name.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.TrimSpace(s)); c {
	case ChannelInApp, ChannelWebhook, ChannelTelegram, ChannelWebPush:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidTarget, s)
	}
}

// Target is the channel-specific delivery address of a subscription. Exactly
// one of InApp, Webhook, Telegram or WebPush.
type Target interface {
	Channel() Channel
	isTarget()
}

// InApp targets have no external address; the stored notification is the delivery.
type InApp struct{}

// Webhook posts notification JSON to URL.
type Webhook struct {
	URL string
}

// Telegram sends a plain-text chat message. ChatID is a numeric chat id or a
// public channel username.
type Telegram struct {
	ChatID string
}

// WebPush delivers through a browser push endpoint.
type WebPush struct {
	Subscription PushSubscription
}

func (InApp) Channel() Channel    { return ChannelInApp }
func (Webhook) Channel() Channel  { return ChannelWebhook }
func (Telegram) Channel() Channel { return ChannelTelegram }
func (WebPush) Channel() Channel  { return ChannelWebPush }

func (InApp) isTarget()    {}
func (Webhook) isTarget()  {}
func (Telegram) isTarget() {}
func (WebPush) isTarget()  {}

// PushKeys are the browser-generated encryption keys of a push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh,omitempty"`
	Auth   string `json:"auth,omitempty"`
}

// PushSubscription is the browser PushSubscription JSON.
type PushSubscription struct {
	Endpoint       string   `json:"endpoint"`
	ExpirationTime *int64   `json:"expirationTime,omitempty"`
	Keys           PushKeys `json:"keys"`
}

// NewWebhook validates and builds a webhook target.
func NewWebhook(url string) (Webhook, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Webhook{}, fmt.Errorf("%w: webhook url required", ErrInvalidTarget)
	}
	return Webhook{URL: url}, nil
}

// NewTelegram validates and builds a chat target.
func NewTelegram(chatID string) (Telegram, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return Telegram{}, fmt.Errorf("%w: telegram chat id required", ErrInvalidTarget)
	}
	return Telegram{ChatID: chatID}, nil
}

// NewWebPush validates and builds a push target.
func NewWebPush(sub *PushSubscription) (WebPush, error) {
	if sub == nil || strings.TrimSpace(sub.Endpoint) == "" {
		return WebPush{}, fmt.Errorf("%w: push subscription endpoint required", ErrInvalidTarget)
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return WebPush{}, fmt.Errorf("%w: push subscription keys required", ErrInvalidTarget)
	}
	return WebPush{Subscription: *sub}, nil
}

// NewTarget builds the target for channel from its flat wire fields.
func NewTarget(channel Channel, webhookURL, telegramChatID string, push *PushSubscription) (Target, error) {
	switch channel {
	case ChannelInApp:
		return InApp{}, nil
	case ChannelWebhook:
		return NewWebhook(webhookURL)
	case ChannelTelegram:
		return NewTelegram(telegramChatID)
	case ChannelWebPush:
		return NewWebPush(push)
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidTarget, channel)
	}
}

// Subscription is a user's standing request to be told when a matching
// specialist gets better availability.
type Subscription struct {
	ID        string
	UserID    string
	Query     string
	Target    Target
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Channel returns the delivery channel, defaulting to in-app.
func (s Subscription) Channel() Channel {
	if s.Target == nil {
		return ChannelInApp
	}
	return s.Target.Channel()
}

type subscriptionJSON struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	Query            string            `json:"query"`
	Channel          Channel           `json:"channel"`
	WebhookURL       string            `json:"webhookUrl,omitempty"`
	TelegramChatID   string            `json:"telegramChatId,omitempty"`
	PushSubscription *PushSubscription `json:"pushSubscription,omitempty"`
	Active           bool              `json:"active"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// MarshalJSON writes the flat wire form.
func (s Subscription) MarshalJSON() ([]byte, error) {
	out := subscriptionJSON{
		ID:        s.ID,
		UserID:    s.UserID,
		Query:     s.Query,
		Channel:   s.Channel(),
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	switch t := s.Target.(type) {
	case Webhook:
		out.WebhookURL = t.URL
	case Telegram:
		out.TelegramChatID = t.ChatID
	case WebPush:
		push := t.Subscription
		out.PushSubscription = &push
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire form and rejects inconsistent targets.
func (s *Subscription) UnmarshalJSON(data []byte) error {
	var in subscriptionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	channel := in.Channel
	if channel == "" {
		channel = ChannelInApp
	}
	target, err := NewTarget(channel, in.WebhookURL, in.TelegramChatID, in.PushSubscription)
	if err != nil {
		return err
	}
	*s = Subscription{
		ID:        in.ID,
		UserID:    in.UserID,
		Query:     in.Query,
		Target:    target,
		Active:    in.Active,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	return nil
}
