package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/slots"
)

const (
	latestSnapshotKey         = "kccg:snapshot:latest"
	snapshotByDatePrefix      = "kccg:snapshot:date:"
	subscriptionsKey          = "kccg:subscriptions"
	notificationsByUserPrefix = "kccg:notifications:user:"

	maxWatchRetries = 5
)

// Redis stores snapshots as JSON strings, subscriptions in one hash keyed by
// id, and each user's notifications in a capped list (head is newest).
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis wraps a connected client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (r *Redis) LatestSnapshot(ctx context.Context) (*slots.Snapshot, error) {
	return r.getSnapshot(ctx, latestSnapshotKey)
}

func (r *Redis) SnapshotByDate(ctx context.Context, date string) (*slots.Snapshot, error) {
	return r.getSnapshot(ctx, snapshotByDatePrefix+date)
}

func (r *Redis) getSnapshot(ctx context.Context, key string) (*slots.Snapshot, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get snapshot: %w", err)
	}
	var snap slots.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot writes the latest and by-date keys in one transaction.
func (r *Redis) SaveSnapshot(ctx context.Context, snap *slots.Snapshot) error {
	if snap == nil {
		return errNilSnapshot
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, latestSnapshotKey, data, 0)
		pipe.Set(ctx, snapshotByDatePrefix+snap.SourceReportDate, data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (r *Redis) Subscriptions(ctx context.Context, userID string) ([]notify.Subscription, error) {
	values, err := r.client.HGetAll(ctx, subscriptionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list subscriptions: %w", err)
	}
	out := make([]notify.Subscription, 0, len(values))
	for id, raw := range values {
		var sub notify.Subscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("store: unmarshal subscription %s: %w", id, err)
		}
		if userID == "" || sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sortSubscriptions(out)
	return out, nil
}

func (r *Redis) Subscription(ctx context.Context, id string) (*notify.Subscription, error) {
	raw, err := r.client.HGet(ctx, subscriptionsKey, id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get subscription: %w", err)
	}
	var sub notify.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("store: unmarshal subscription: %w", err)
	}
	return &sub, nil
}

func (r *Redis) UpsertSubscription(ctx context.Context, sub notify.Subscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("store: marshal subscription: %w", err)
	}
	if err := r.client.HSet(ctx, subscriptionsKey, sub.ID, data).Err(); err != nil {
		return fmt.Errorf("store: upsert subscription: %w", err)
	}
	return nil
}

// DisableSubscription flips active off under WATCH so a concurrent upsert of
// the same subscription is never lost.
func (r *Redis) DisableSubscription(ctx context.Context, id string) (*notify.Subscription, error) {
	var updated *notify.Subscription
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, subscriptionsKey, id).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var sub notify.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return err
		}
		sub.Active = false
		sub.UpdatedAt = r.now().UTC()
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, subscriptionsKey, id, data)
			return nil
		})
		if err == nil {
			updated = &sub
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, subscriptionsKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("store: disable subscription: %w", err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("store: disable subscription: %w", redis.TxFailedErr)
}

// PushNotifications prepends each user's batch, keeping batch order, and
// trims the list to MaxNotificationsPerUser.
func (r *Redis) PushNotifications(ctx context.Context, notifications []notify.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	users, groups := groupByUser(notifications)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, userID := range users {
			batch := groups[userID]
			values := make([]interface{}, 0, len(batch))
			// LPUSH prepends values one at a time, so pass the batch reversed.
			for i := len(batch) - 1; i >= 0; i-- {
				data, err := json.Marshal(batch[i])
				if err != nil {
					return fmt.Errorf("marshal notification: %w", err)
				}
				values = append(values, data)
			}
			key := notificationsByUserPrefix + userID
			pipe.LPush(ctx, key, values...)
			pipe.LTrim(ctx, key, 0, MaxNotificationsPerUser-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: push notifications: %w", err)
	}
	return nil
}

func (r *Redis) Notifications(ctx context.Context, userID string, limit int) ([]notify.Notification, error) {
	limit = ClampLimit(limit)
	values, err := r.client.LRange(ctx, notificationsByUserPrefix+userID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: get notifications: %w", err)
	}
	out := make([]notify.Notification, 0, len(values))
	for _, raw := range values {
		var n notify.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("store: unmarshal notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
