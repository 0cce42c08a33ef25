// Package notify matches subscriptions against slot changes, builds the user
// notifications and delivers them over webhook, telegram and web push.
package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

var notifyTracer = otel.Tracer("slot-watch.notify")

const (
	defaultConcurrency     = 8
	defaultDeliveryTimeout = 15 * time.Second
)

// Deliverer sends a notification to one kind of target.
type Deliverer interface {
	Deliver(ctx context.Context, target Target, n Notification) error
}

// DeliveryRecorder observes delivery outcomes.
type DeliveryRecorder interface {
	ObserveDelivery(channel, outcome string)
}

// Fanout builds notifications for matching (subscription, change) pairs and
// delivers them best effort. A failed delivery never affects other pairs.
type Fanout struct {
	deliverers  map[Channel]Deliverer
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	recorder    DeliveryRecorder
	logger      *logging.Logger
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithDeliverer registers the deliverer for a channel. Channels without one
// are recorded only.
func WithDeliverer(channel Channel, d Deliverer) FanoutOption {
	return func(f *Fanout) {
		if d != nil {
			f.deliverers[channel] = d
		}
	}
}

// WithConcurrency bounds the number of in-flight deliveries.
func WithConcurrency(n int) FanoutOption {
	return func(f *Fanout) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithDeliveryTimeout caps each delivery attempt.
func WithDeliveryTimeout(d time.Duration) FanoutOption {
	return func(f *Fanout) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithDeliveryRecorder attaches a metrics recorder.
func WithDeliveryRecorder(r DeliveryRecorder) FanoutOption {
	return func(f *Fanout) { f.recorder = r }
}

// WithClock overrides the notification timestamp source.
func WithClock(now func() time.Time) FanoutOption {
	return func(f *Fanout) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFanout creates a fanout.
func NewFanout(logger *logging.Logger, opts ...FanoutOption) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Fanout{
		deliverers:  make(map[Channel]Deliverer),
		concurrency: defaultConcurrency,
		timeout:     defaultDeliveryTimeout,
		now:         time.Now,
		logger:      logger.Component("notify"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run returns one notification per matching pair, in subscription then change
// order, after every delivery attempt has finished.
func (f *Fanout) Run(ctx context.Context, subscriptions []Subscription, changes []slots.Change) []Notification {
	ctx, span := notifyTracer.Start(ctx, "notify.Fanout")
	defer span.End()

	var notifications []Notification
	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for _, sub := range subscriptions {
		for _, change := range changes {
			if !Matches(sub, change) {
				continue
			}
			n := NewNotification(sub, change, f.now())
			notifications = append(notifications, n)

			d, ok := f.deliverers[sub.Channel()]
			if !ok {
				continue
			}
			target := sub.Target
			g.Go(func() error {
				f.deliver(ctx, d, target, n)
				return nil
			})
		}
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("notify.subscriptions", len(subscriptions)),
		attribute.Int("notify.changes", len(changes)),
		attribute.Int("notify.notifications", len(notifications)),
	)
	return notifications
}

func (f *Fanout) deliver(ctx context.Context, d Deliverer, target Target, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	channel := string(target.Channel())
	if err := d.Deliver(ctx, target, n); err != nil {
		f.logger.Warn("notify: delivery failed", "channel", channel, "user_id", n.UserID, "notification_id", n.ID, "error", err)
		f.observe(channel, "failed")
		return
	}
	f.observe(channel, "sent")
}

func (f *Fanout) observe(channel, outcome string) {
	if f.recorder != nil {
		f.recorder.ObserveDelivery(channel, outcome)
	}
}
