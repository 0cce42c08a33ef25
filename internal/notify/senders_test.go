package notify

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/slot-watch/internal/slots"
)

func sampleNotification() Notification {
	return NewNotification(Subscription{UserID: "u1", Target: InApp{}}, rheumatologyChange(slots.ReasonOpenedSlots), testNow)
}

func TestWebhookSenderPostsJSON(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := sampleNotification()
	err := NewWebhookSender(srv.Client()).Deliver(context.Background(), Webhook{URL: srv.URL}, n)

	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.Message, got.Message)
}

func TestWebhookSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(nil).Deliver(context.Background(), Webhook{URL: srv.URL}, sampleNotification())
	assert.ErrorContains(t, err, "502")

	err = NewWebhookSender(nil).Deliver(context.Background(), InApp{}, sampleNotification())
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func TestTelegramSenderSendsTitleAndMessage(t *testing.T) {
	bot := &fakeBot{}
	sender := NewTelegramSender(bot, 100)

	n := sampleNotification()
	require.NoError(t, sender.Deliver(context.Background(), Telegram{ChatID: "-100123"}, n))

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(-100123), bot.sent[0].ChatID)
	assert.Equal(t, "Slot update: Reumatoloska ambulanta\nSlots opened. First available: 03.11.2026. 09:00", bot.sent[0].Text)
}

func TestTelegramSenderErrors(t *testing.T) {
	sender := NewTelegramSender(&fakeBot{err: errors.New("Forbidden: bot was blocked by the user")}, 0)
	err := sender.SendText(context.Background(), "1", "hi")
	assert.ErrorContains(t, err, "blocked")

	assert.Error(t, NewTelegramSender(nil, 0).SendText(context.Background(), "1", "hi"))
}

func TestChatMessageChannelUsername(t *testing.T) {
	msg := ChatMessage("@slotwatch", "hello")
	assert.Equal(t, "@slotwatch", msg.ChannelUsername)
	assert.Zero(t, msg.ChatID)
}

func TestNewWebPushSenderRequiresKeys(t *testing.T) {
	_, err := NewWebPushSender(PushCredentials{PublicKey: "pub"}, nil)
	assert.Error(t, err)
}

func TestWebPushSenderBuildsPayload(t *testing.T) {
	sender, err := NewWebPushSender(PushCredentials{PublicKey: "pub", PrivateKey: "priv", Subject: "mailto:ops@example.com"}, nil)
	require.NoError(t, err)

	var gotPayload PushPayload
	var gotOptions *webpush.Options
	sender.send = func(_ context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		require.NoError(t, json.Unmarshal(message, &gotPayload))
		assert.Equal(t, "https://push.example.com/abc", s.Endpoint)
		assert.Equal(t, "auth", s.Keys.Auth)
		gotOptions = options
		return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(http.NoBody)}, nil
	}

	n := sampleNotification()
	target := WebPush{Subscription: PushSubscription{Endpoint: "https://push.example.com/abc", Keys: PushKeys{P256dh: "key", Auth: "auth"}}}
	require.NoError(t, sender.Deliver(context.Background(), target, n))

	assert.Equal(t, PushPayload{Title: n.Title, Body: n.Message, Data: PushPayloadData{ID: n.ID, UserID: "u1"}}, gotPayload)
	assert.Equal(t, "ops@example.com", gotOptions.Subscriber)
	assert.Equal(t, "pub", gotOptions.VAPIDPublicKey)
}

func TestWebPushSenderGone(t *testing.T) {
	sender, err := NewWebPushSender(PushCredentials{PublicKey: "pub", PrivateKey: "priv"}, nil)
	require.NoError(t, err)
	sender.send = func(context.Context, []byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusGone, Body: io.NopCloser(http.NoBody)}, nil
	}

	err = sender.Push(context.Background(), PushSubscription{Endpoint: "https://push.example.com/x"}, PushPayload{})
	assert.ErrorIs(t, err, ErrSubscriptionGone)
}

func TestWebPushSenderEncryptsForEndpoint(t *testing.T) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	browserKey, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	var gotEncoding, gotAuthorization string
	var bodyLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Content-Encoding")
		gotAuthorization = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		bodyLen = len(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender, err := NewWebPushSender(PushCredentials{PublicKey: publicKey, PrivateKey: privateKey, Subject: "mailto:ops@example.com"}, srv.Client())
	require.NoError(t, err)

	sub := PushSubscription{
		Endpoint: srv.URL + "/push/abc",
		Keys: PushKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(browserKey.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
	require.NoError(t, sender.Push(context.Background(), sub, PushPayload{Title: "t", Body: "b"}))

	assert.Equal(t, "aes128gcm", gotEncoding)
	assert.Contains(t, gotAuthorization, "vapid t=")
	assert.Greater(t, bodyLen, 0)
}
