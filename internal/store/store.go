// Package store persists snapshots, subscriptions and notifications.
//
// Every backend is an explicitly constructed object passed to its callers;
// there is no process-wide default store.
package store

import (
	"context"
	"errors"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/slots"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("store: not found")

var errNilSnapshot = errors.New("store: nil snapshot")

const (
	// MaxNotificationsPerUser caps each user's notification history.
	MaxNotificationsPerUser = 200
	// DefaultNotificationLimit is used when a caller passes a non-positive limit.
	DefaultNotificationLimit = 50
)

// SnapshotStore keeps the latest snapshot and one per report date.
// LatestSnapshot and SnapshotByDate return nil, nil when nothing is stored.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context) (*slots.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *slots.Snapshot) error
	SnapshotByDate(ctx context.Context, date string) (*slots.Snapshot, error)
}

// SubscriptionStore keeps user subscriptions. An empty userID lists all users.
type SubscriptionStore interface {
	Subscriptions(ctx context.Context, userID string) ([]notify.Subscription, error)
	Subscription(ctx context.Context, id string) (*notify.Subscription, error)
	UpsertSubscription(ctx context.Context, sub notify.Subscription) error
	DisableSubscription(ctx context.Context, id string) (*notify.Subscription, error)
}

// NotificationStore keeps per-user notification history, newest first.
type NotificationStore interface {
	PushNotifications(ctx context.Context, notifications []notify.Notification) error
	Notifications(ctx context.Context, userID string, limit int) ([]notify.Notification, error)
}

// ClampLimit bounds a notification read limit to [1, MaxNotificationsPerUser].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultNotificationLimit
	}
	if limit > MaxNotificationsPerUser {
		return MaxNotificationsPerUser
	}
	return limit
}

// groupByUser keeps batch order within each user.
func groupByUser(notifications []notify.Notification) ([]string, map[string][]notify.Notification) {
	var users []string
	groups := make(map[string][]notify.Notification)
	for _, n := range notifications {
		if _, ok := groups[n.UserID]; !ok {
			users = append(users, n.UserID)
		}
		groups[n.UserID] = append(groups[n.UserID], n)
	}
	return users, groups
}
