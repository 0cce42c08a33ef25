package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/store"
)

const subscriptionColumns = `id, user_id, query, channel, webhook_url, telegram_chat_id, push_subscription, active, created_at, updated_at`

// SubscriptionStore implements store.SubscriptionStore.
type SubscriptionStore struct {
	db  DB
	now func() time.Time
}

// NewSubscriptionStore creates a subscription store.
func NewSubscriptionStore(db DB) *SubscriptionStore {
	return &SubscriptionStore{db: db, now: time.Now}
}

// Subscriptions lists subscriptions, all users when userID is empty.
func (s *SubscriptionStore) Subscriptions(ctx context.Context, userID string) ([]notify.Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []notify.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list subscriptions: %w", err)
	}
	return out, nil
}

// Subscription loads one subscription by id.
func (s *SubscriptionStore) Subscription(ctx context.Context, id string) (*notify.Subscription, error) {
	row := s.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription inserts or replaces a subscription by id.
func (s *SubscriptionStore) UpsertSubscription(ctx context.Context, sub notify.Subscription) error {
	var webhookURL, chatID string
	var push []byte
	switch t := sub.Target.(type) {
	case notify.Webhook:
		webhookURL = t.URL
	case notify.Telegram:
		chatID = t.ChatID
	case notify.WebPush:
		data, err := json.Marshal(t.Subscription)
		if err != nil {
			return fmt.Errorf("postgres: marshal push subscription: %w", err)
		}
		push = data
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			query = EXCLUDED.query,
			channel = EXCLUDED.channel,
			webhook_url = EXCLUDED.webhook_url,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			push_subscription = EXCLUDED.push_subscription,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.UserID, sub.Query, string(sub.Channel()),
		nullableText(webhookURL), nullableText(chatID), push,
		sub.Active, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert subscription: %w", err)
	}
	return nil
}

// DisableSubscription marks a subscription inactive and returns it.
func (s *SubscriptionStore) DisableSubscription(ctx context.Context, id string) (*notify.Subscription, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE subscriptions SET active = FALSE, updated_at = $2
		WHERE id = $1
		RETURNING `+subscriptionColumns, id, s.now().UTC())
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanSubscription(row pgx.Row) (notify.Subscription, error) {
	var (
		sub                 notify.Subscription
		channel             string
		webhookURL, chatID  *string
		push                []byte
		createdAt, updateAt time.Time
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Query, &channel, &webhookURL, &chatID, &push, &sub.Active, &createdAt, &updateAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return notify.Subscription{}, err
	}
	if err != nil {
		return notify.Subscription{}, fmt.Errorf("postgres: scan subscription: %w", err)
	}

	var pushSub *notify.PushSubscription
	if len(push) > 0 {
		pushSub = &notify.PushSubscription{}
		if err := json.Unmarshal(push, pushSub); err != nil {
			return notify.Subscription{}, fmt.Errorf("postgres: unmarshal push subscription: %w", err)
		}
	}
	target, err := notify.NewTarget(notify.Channel(channel), textOrEmpty(webhookURL), textOrEmpty(chatID), pushSub)
	if err != nil {
		return notify.Subscription{}, fmt.Errorf("postgres: subscription %s: %w", sub.ID, err)
	}
	sub.Target = target
	sub.CreatedAt = createdAt.UTC()
	sub.UpdatedAt = updateAt.UTC()
	return sub, nil
}
