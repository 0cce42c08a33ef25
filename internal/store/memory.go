package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/slots"
)

// Memory is an in-process store for development and tests. It implements
// SnapshotStore, SubscriptionStore and NotificationStore.
type Memory struct {
	mu            sync.RWMutex
	latest        *slots.Snapshot
	byDate        map[string]*slots.Snapshot
	subscriptions map[string]notify.Subscription
	notifications map[string][]notify.Notification
	now           func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		byDate:        make(map[string]*slots.Snapshot),
		subscriptions: make(map[string]notify.Subscription),
		notifications: make(map[string][]notify.Notification),
		now:           time.Now,
	}
}

func (m *Memory) LatestSnapshot(_ context.Context) (*slots.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, snap *slots.Snapshot) error {
	if snap == nil {
		return errNilSnapshot
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = snap
	m.byDate[snap.SourceReportDate] = snap
	return nil
}

func (m *Memory) SnapshotByDate(_ context.Context, date string) (*slots.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byDate[date], nil
}

func (m *Memory) Subscriptions(_ context.Context, userID string) ([]notify.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]notify.Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if userID == "" || sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sortSubscriptions(out)
	return out, nil
}

func (m *Memory) Subscription(_ context.Context, id string) (*notify.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (m *Memory) UpsertSubscription(_ context.Context, sub notify.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.ID] = sub
	return nil
}

func (m *Memory) DisableSubscription(_ context.Context, id string) (*notify.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sub.Active = false
	sub.UpdatedAt = m.now().UTC()
	m.subscriptions[id] = sub
	return &sub, nil
}

func (m *Memory) PushNotifications(_ context.Context, notifications []notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, groups := groupByUser(notifications)
	for _, userID := range users {
		merged := append(append([]notify.Notification{}, groups[userID]...), m.notifications[userID]...)
		if len(merged) > MaxNotificationsPerUser {
			merged = merged[:MaxNotificationsPerUser]
		}
		m.notifications[userID] = merged
	}
	return nil
}

func (m *Memory) Notifications(_ context.Context, userID string, limit int) ([]notify.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.notifications[userID]
	limit = ClampLimit(limit)
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]notify.Notification{}, list...), nil
}

// sortSubscriptions orders by creation time, then id.
func sortSubscriptions(subs []notify.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ID < subs[j].ID
	})
}
