// Package bot answers telegram chat commands: subscription management, manual
// syncs and "right now" availability lookups.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/query"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

// maxListed caps the /list reply.
const maxListed = 25

// Replier sends plain text to a chat.
type Replier interface {
	SendText(ctx context.Context, chatID, text string) error
}

// Lookup answers a free-text query against the latest snapshot.
type Lookup interface {
	Lookup(ctx context.Context, q string) (query.Result, error)
}

// Syncer runs a sync on demand.
type Syncer interface {
	Run(ctx context.Context, trigger syncer.Trigger) syncer.Result
}

// CommandRecorder counts handled commands.
type CommandRecorder interface {
	ObserveCommand(command string)
}

// Handler dispatches telegram updates.
type Handler struct {
	replier       Replier
	lookup        Lookup
	syncer        Syncer
	subscriptions store.SubscriptionStore
	recorder      CommandRecorder
	logger        *logging.Logger
	now           func() time.Time
	newID         func() string
}

// Option customizes a Handler.
type Option func(*Handler)

// WithCommandRecorder counts commands.
func WithCommandRecorder(r CommandRecorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// WithClock overrides subscription timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithIDGenerator overrides subscription ids.
func WithIDGenerator(newID func() string) Option {
	return func(h *Handler) { h.newID = newID }
}

func NewHandler(replier Replier, lookup Lookup, sync Syncer, subscriptions store.SubscriptionStore, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		replier:       replier,
		lookup:        lookup,
		syncer:        sync,
		subscriptions: subscriptions,
		logger:        logger.Component("bot"),
		now:           time.Now,
		newID:         func() string { return "sub_" + uuid.New().String() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// UserID is the subscription owner id of a telegram chat.
func UserID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// HandleUpdate processes one update. Updates without a chat or text are ignored.
// Errors are reported to the chat, never returned, so the webhook always ACKs.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	chatID := msg.Chat.ID
	cmd, args := splitCommand(msg, text)
	if h.recorder != nil {
		label := cmd
		if label == "" {
			label = "query"
		}
		h.recorder.ObserveCommand(label)
	}

	if err := h.dispatch(ctx, chatID, cmd, args, text); err != nil {
		h.logger.Error("bot: command failed", "command", cmd, "chat_id", chatID, "error", err)
		h.reply(ctx, chatID, "Something went wrong while processing your command. Try again in a minute.")
	}
}

func (h *Handler) dispatch(ctx context.Context, chatID int64, cmd, args, text string) error {
	userID := UserID(chatID)
	switch cmd {
	case "/start", "/help":
		h.reply(ctx, chatID, startText)
	case "/test":
		h.reply(ctx, chatID, "OK. Bot is alive.")
	case "/id":
		h.reply(ctx, chatID, fmt.Sprintf("chat_id: %d\nuser_id: %s", chatID, userID))
	case "/sync":
		h.reply(ctx, chatID, "Running sync... (this can take ~10-30s)")
		h.reply(ctx, chatID, FormatSyncResult(h.syncer.Run(ctx, syncer.TriggerTelegram)))
	case "/list":
		return h.list(ctx, chatID, userID)
	case "/unsuball":
		return h.unsubscribeAll(ctx, chatID, userID)
	case "/unsub":
		return h.unsubscribe(ctx, chatID, userID, args)
	case "/sub":
		return h.subscribe(ctx, chatID, userID, args)
	default:
		h.reply(ctx, chatID, "Treba mi 10 sekundi.")
		h.reply(ctx, chatID, h.statusText(ctx, text))
	}
	return nil
}

func (h *Handler) list(ctx context.Context, chatID int64, userID string) error {
	subs, err := h.subscriptions.Subscriptions(ctx, userID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		h.reply(ctx, chatID, "No subscriptions yet. Use /sub <query>.")
		return nil
	}
	if len(subs) > maxListed {
		subs = subs[:maxListed]
	}
	lines := []string{"Your subscriptions:"}
	for _, sub := range subs {
		state := "OFF"
		if sub.Active {
			state = "ON"
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %s", sub.ID, state, sub.Query))
	}
	h.reply(ctx, chatID, strings.Join(lines, "\n"))
	return nil
}

func (h *Handler) unsubscribeAll(ctx context.Context, chatID int64, userID string) error {
	subs, err := h.subscriptions.Subscriptions(ctx, userID)
	if err != nil {
		return err
	}
	count := 0
	for _, sub := range subs {
		if !sub.Active {
			continue
		}
		if _, err := h.subscriptions.DisableSubscription(ctx, sub.ID); err != nil {
			return err
		}
		count++
	}
	h.reply(ctx, chatID, fmt.Sprintf("Disabled: %d", count))
	return nil
}

func (h *Handler) unsubscribe(ctx context.Context, chatID int64, userID, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		h.reply(ctx, chatID, "Usage: /unsub <id>")
		return nil
	}
	id := fields[0]

	subs, err := h.subscriptions.Subscriptions(ctx, userID)
	if err != nil {
		return err
	}
	owned := false
	for _, sub := range subs {
		if sub.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		h.reply(ctx, chatID, "Not found. Use /list to see ids.")
		return nil
	}
	if _, err := h.subscriptions.DisableSubscription(ctx, id); err != nil {
		return err
	}
	h.reply(ctx, chatID, "Disabled: "+id)
	return nil
}

func (h *Handler) subscribe(ctx context.Context, chatID int64, userID, args string) error {
	q := strings.TrimSpace(args)
	if q == "" {
		h.reply(ctx, chatID, "Usage: /sub <specijalista>")
		return nil
	}
	h.reply(ctx, chatID, "Treba mi 10 sekundi.")
	status := h.statusText(ctx, q)

	target, err := notify.NewTelegram(strconv.FormatInt(chatID, 10))
	if err != nil {
		return err
	}
	now := h.now().UTC()
	sub := notify.Subscription{
		ID:        h.newID(),
		UserID:    userID,
		Query:     q,
		Target:    target,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.subscriptions.UpsertSubscription(ctx, sub); err != nil {
		return err
	}
	h.reply(ctx, chatID, status+"\n\nPretplata sacuvana: "+sub.ID)
	return nil
}

func (h *Handler) statusText(ctx context.Context, q string) string {
	res, err := h.lookup.Lookup(ctx, q)
	if err != nil {
		h.logger.Warn("bot: lookup failed", "query", q, "error", err)
		return "Nijesam uspio da provjerim trenutno stanje za: " + q
	}
	return FormatAnswer(q, res)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.replier.SendText(ctx, strconv.FormatInt(chatID, 10), text); err != nil {
		h.logger.Warn("bot: reply failed", "chat_id", chatID, "error", err)
	}
}

// splitCommand returns the lowercased command (without a @botname suffix) and
// its arguments. Plain text yields an empty command.
func splitCommand(msg *tgbotapi.Message, text string) (string, string) {
	if msg.IsCommand() {
		return "/" + strings.ToLower(msg.Command()), strings.TrimSpace(msg.CommandArguments())
	}
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(args)
}
