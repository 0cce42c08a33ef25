package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/store"
)

// NotificationStore implements store.NotificationStore. Rows are ordered by
// insertion sequence, newest first.
type NotificationStore struct {
	db DB
}

// NewNotificationStore creates a notification store.
func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const (
	insertNotificationSQL = `
		INSERT INTO user_notifications (id, user_id, created_at, title, message, payload, channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	trimNotificationsSQL = `
		DELETE FROM user_notifications
		WHERE user_id = $1 AND seq NOT IN (
			SELECT seq FROM user_notifications WHERE user_id = $1 ORDER BY seq DESC LIMIT $2
		)`
)

// PushNotifications inserts the batch so that its first element reads as the
// newest, then trims each touched user to store.MaxNotificationsPerUser. The
// inserts and trims commit together or not at all.
func (s *NotificationStore) PushNotifications(ctx context.Context, notifications []notify.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	users := make([]string, 0)
	seen := make(map[string]struct{})
	for i := len(notifications) - 1; i >= 0; i-- {
		n := notifications[i]
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal notification payload: %w", err)
		}
		batch.Queue(insertNotificationSQL, n.ID, n.UserID, n.CreatedAt, n.Title, n.Message, payload, string(n.Channel))
		if _, ok := seen[n.UserID]; !ok {
			seen[n.UserID] = struct{}{}
			users = append(users, n.UserID)
		}
	}
	for _, userID := range users {
		batch.Queue(trimNotificationsSQL, userID, store.MaxNotificationsPerUser)
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return err
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("postgres: push notifications: %w", err)
	}
	return nil
}

// Notifications returns up to limit notifications for a user, newest first.
func (s *NotificationStore) Notifications(ctx context.Context, userID string, limit int) ([]notify.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, created_at, title, message, payload, channel
		FROM user_notifications
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2`, userID, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var (
			n         notify.Notification
			payload   []byte
			channel   string
			createdAt time.Time
		)
		if err := rows.Scan(&n.ID, &n.UserID, &createdAt, &n.Title, &n.Message, &payload, &channel); err != nil {
			return nil, fmt.Errorf("postgres: scan notification: %w", err)
		}
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal notification payload: %w", err)
		}
		n.CreatedAt = createdAt.UTC()
		n.Channel = notify.Channel(channel)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	return out, nil
}
