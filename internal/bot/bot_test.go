package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/query"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/internal/syncer"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

const chatID int64 = 4242

type sentText struct {
	chatID string
	text   string
}

type fakeReplier struct {
	sent []sentText
}

func (f *fakeReplier) SendText(_ context.Context, chatID, text string) error {
	f.sent = append(f.sent, sentText{chatID: chatID, text: text})
	return nil
}

func (f *fakeReplier) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

type fakeLookup struct {
	result  query.Result
	err     error
	queries []string
}

func (f *fakeLookup) Lookup(_ context.Context, q string) (query.Result, error) {
	f.queries = append(f.queries, q)
	return f.result, f.err
}

type fakeSyncer struct {
	result   syncer.Result
	triggers []syncer.Trigger
}

func (f *fakeSyncer) Run(_ context.Context, trigger syncer.Trigger) syncer.Result {
	f.triggers = append(f.triggers, trigger)
	return f.result
}

type fakeCommands struct {
	commands []string
}

func (f *fakeCommands) ObserveCommand(command string) {
	f.commands = append(f.commands, command)
}

type fixture struct {
	handler  *Handler
	replier  *fakeReplier
	lookup   *fakeLookup
	syncer   *fakeSyncer
	mem      *store.Memory
	commands *fakeCommands
}

func newFixture() *fixture {
	f := &fixture{
		replier:  &fakeReplier{},
		lookup:   &fakeLookup{},
		syncer:   &fakeSyncer{},
		mem:      store.NewMemory(),
		commands: &fakeCommands{},
	}
	f.handler = NewHandler(f.replier, f.lookup, f.syncer, f.mem, logging.Discard(),
		WithCommandRecorder(f.commands),
		WithClock(func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { return "sub_fixed" }),
	)
	return f
}

func (f *fixture) send(text string) {
	f.handler.HandleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	})
}

func hasSlots() *slots.Status {
	s := slots.StatusHasSlots
	return &s
}

func TestStartAndHelp(t *testing.T) {
	f := newFixture()
	f.send("/start")
	f.send("/help@kccg_bot")

	require.Len(t, f.replier.sent, 2)
	assert.Equal(t, "4242", f.replier.sent[0].chatID)
	assert.Contains(t, f.replier.sent[0].text, "/sub <specijalista>")
	assert.Equal(t, f.replier.sent[0].text, f.replier.sent[1].text)
	assert.Equal(t, []string{"/start", "/help"}, f.commands.commands)
}

func TestCommandEntityIsHonored(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text:     "/TEST@kccg_bot now",
			Chat:     &tgbotapi.Chat{ID: chatID},
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 14}},
		},
	})
	assert.Equal(t, "OK. Bot is alive.", f.replier.last())
}

func TestID(t *testing.T) {
	f := newFixture()
	f.send("/id")
	assert.Equal(t, "chat_id: 4242\nuser_id: tg:4242", f.replier.last())
}

func TestIgnoresEmptyUpdates(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), tgbotapi.Update{})
	f.handler.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi"}})
	f.send("   ")
	assert.Empty(t, f.replier.sent)
}

func TestSync(t *testing.T) {
	f := newFixture()
	f.syncer.result = syncer.Result{
		OK:                 true,
		SourceReportDate:   slots.StringPtr("15.10.2026"),
		ChangesCount:       2,
		NotificationsCount: 3,
	}
	f.send("/sync")

	assert.Equal(t, []syncer.Trigger{syncer.TriggerTelegram}, f.syncer.triggers)
	require.Len(t, f.replier.sent, 2)
	assert.Equal(t, "Sync done.\nsourceReportDate: 15.10.2026\nchanges: 2\nnotifications: 3\nskipped: no", f.replier.last())
}

func TestSubscribeSavesTelegramSubscription(t *testing.T) {
	f := newFixture()
	f.lookup.result = query.Result{
		SourceReportDate: "15.10.2026",
		Answer: query.Answer{
			Kind:           query.AnswerSingle,
			Specialist:     "Reumatoloska ambulanta",
			Status:         hasSlots(),
			FirstAvailable: slots.StringPtr("20.10.2026. 09:30"),
		},
	}

	f.send("/sub  reumatolog ")

	assert.Equal(t, []string{"reumatolog"}, f.lookup.queries)
	assert.Equal(t, "IMA TERMINA\nPrvi dostupni termin: 20.10.2026. 09:30 (Reumatoloska ambulanta)\nIzvjestaj: 15.10.2026\n\nPretplata sacuvana: sub_fixed", f.replier.last())

	sub, err := f.mem.Subscription(context.Background(), "sub_fixed")
	require.NoError(t, err)
	assert.Equal(t, "tg:4242", sub.UserID)
	assert.Equal(t, "reumatolog", sub.Query)
	assert.Equal(t, notify.Telegram{ChatID: "4242"}, sub.Target)
	assert.True(t, sub.Active)
}

func TestSubscribeUsage(t *testing.T) {
	f := newFixture()
	f.send("/sub")
	assert.Equal(t, "Usage: /sub <specijalista>", f.replier.last())
}

func TestSubscribeWhenLookupFailsStillSaves(t *testing.T) {
	f := newFixture()
	f.lookup.err = errors.New("no snapshot")
	f.send("/sub kardiolog")

	assert.Equal(t, "Nijesam uspio da provjerim trenutno stanje za: kardiolog\n\nPretplata sacuvana: sub_fixed", f.replier.last())
	_, err := f.mem.Subscription(context.Background(), "sub_fixed")
	assert.NoError(t, err)
}

func seed(t *testing.T, mem *store.Memory, id, userID string, active bool) {
	t.Helper()
	require.NoError(t, mem.UpsertSubscription(context.Background(), notify.Subscription{
		ID:        id,
		UserID:    userID,
		Query:     "q-" + id,
		Target:    notify.Telegram{ChatID: "4242"},
		Active:    active,
		CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func TestListAndUnsubscribe(t *testing.T) {
	f := newFixture()
	f.send("/list")
	assert.Equal(t, "No subscriptions yet. Use /sub <query>.", f.replier.last())

	seed(t, f.mem, "sub_a", "tg:4242", true)
	seed(t, f.mem, "sub_other", "tg:1", true)

	f.send("/list")
	assert.Equal(t, "Your subscriptions:\nsub_a | ON | q-sub_a", f.replier.last())

	f.send("/unsub")
	assert.Equal(t, "Usage: /unsub <id>", f.replier.last())

	f.send("/unsub sub_other")
	assert.Equal(t, "Not found. Use /list to see ids.", f.replier.last())
	other, err := f.mem.Subscription(context.Background(), "sub_other")
	require.NoError(t, err)
	assert.True(t, other.Active)

	f.send("/unsub sub_a")
	assert.Equal(t, "Disabled: sub_a", f.replier.last())
	f.send("/list")
	assert.Equal(t, "Your subscriptions:\nsub_a | OFF | q-sub_a", f.replier.last())
}

func TestUnsubscribeAll(t *testing.T) {
	f := newFixture()
	seed(t, f.mem, "sub_a", "tg:4242", true)
	seed(t, f.mem, "sub_b", "tg:4242", true)
	seed(t, f.mem, "sub_c", "tg:4242", false)

	f.send("/unsuball")
	assert.Equal(t, "Disabled: 2", f.replier.last())
}

func TestPlainTextLooksUpWithoutSubscribing(t *testing.T) {
	f := newFixture()
	f.lookup.result = query.Result{SourceReportDate: "15.10.2026"}
	f.send("xyzqw")

	require.Len(t, f.replier.sent, 2)
	assert.Equal(t, "Treba mi 10 sekundi.", f.replier.sent[0].text)
	assert.Equal(t, "Nijesam nasao rezultate za: xyzqw\nIzvjestaj: 15.10.2026", f.replier.last())
	assert.Equal(t, []string{"query"}, f.commands.commands)

	subs, err := f.mem.Subscriptions(context.Background(), "tg:4242")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

type failingStore struct {
	store.SubscriptionStore
}

func (failingStore) Subscriptions(context.Context, string) ([]notify.Subscription, error) {
	return nil, errors.New("redis down")
}

func TestStoreFailureRepliesWithError(t *testing.T) {
	replier := &fakeReplier{}
	h := NewHandler(replier, &fakeLookup{}, &fakeSyncer{}, failingStore{}, nil)
	h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "/list", Chat: &tgbotapi.Chat{ID: chatID}}})

	assert.Equal(t, "Something went wrong while processing your command. Try again in a minute.", replier.last())
}
