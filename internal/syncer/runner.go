// Package syncer runs the daily pipeline: fetch the report, build a snapshot,
// detect changes against the stored one, fan notifications out and persist.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/slot-watch/internal/changes"
	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/report"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

var tracer = otel.Tracer("slotwatch.internal.syncer")

// Source produces the extracted text of the latest published report.
type Source interface {
	Fetch(ctx context.Context) (*report.Report, error)
}

// Notifier matches subscriptions against changes and delivers notifications.
type Notifier interface {
	Run(ctx context.Context, subscriptions []notify.Subscription, changes []slots.Change) []notify.Notification
}

// Archiver keeps a copy of every saved snapshot.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, snap *slots.Snapshot, reportText string) error
}

// RunRecorder persists the history of sync runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, startedAt, finishedAt time.Time, res Result) error
}

// Metrics observes completed runs.
type Metrics interface {
	ObserveSync(outcome string, changes, notifications int, duration time.Duration)
}

// Runner executes sync runs. At most one run is in flight per Runner.
type Runner struct {
	source        Source
	snapshots     store.SnapshotStore
	subscriptions store.SubscriptionStore
	notifications store.NotificationStore
	notifier      Notifier
	archiver      Archiver
	runs          RunRecorder
	metrics       Metrics
	logger        *logging.Logger
	now           func() time.Time

	mu sync.Mutex
}

// Option customizes a Runner.
type Option func(*Runner)

// WithArchiver archives every saved snapshot.
func WithArchiver(a Archiver) Option {
	return func(r *Runner) { r.archiver = a }
}

// WithRunRecorder records every run result.
func WithRunRecorder(rec RunRecorder) Option {
	return func(r *Runner) { r.runs = rec }
}

// WithMetrics reports run outcomes.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Stores groups the persistence collaborators of a Runner.
type Stores struct {
	Snapshots     store.SnapshotStore
	Subscriptions store.SubscriptionStore
	Notifications store.NotificationStore
}

// NewRunner wires a Runner. Every store and the notifier are required.
func NewRunner(source Source, stores Stores, notifier Notifier, logger *logging.Logger, opts ...Option) (*Runner, error) {
	if source == nil {
		return nil, errors.New("syncer: source is required")
	}
	if stores.Snapshots == nil || stores.Subscriptions == nil || stores.Notifications == nil {
		return nil, errors.New("syncer: snapshot, subscription and notification stores are required")
	}
	if notifier == nil {
		return nil, errors.New("syncer: notifier is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Runner{
		source:        source,
		snapshots:     stores.Snapshots,
		subscriptions: stores.Subscriptions,
		notifications: stores.Notifications,
		notifier:      notifier,
		logger:        logger.Component("syncer"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run performs one sync. It never returns an error: failures are reported
// through Result.OK and Result.Reason, and nothing is saved on failure.
func (r *Runner) Run(ctx context.Context, trigger Trigger) Result {
	if !r.mu.TryLock() {
		r.logger.Info("syncer: run skipped, another run in flight", "trigger", trigger)
		return Result{OK: true, Skipped: true, Trigger: trigger, Reason: reasonRunning}
	}
	defer r.mu.Unlock()

	ctx, span := tracer.Start(ctx, "syncer.run",
		trace.WithAttributes(attribute.String("slotwatch.trigger", string(trigger))),
	)
	defer span.End()

	startedAt := r.now()
	res, err := r.run(ctx, trigger)
	if err != nil {
		span.RecordError(err)
		res = Result{OK: false, Trigger: trigger, Reason: err.Error()}
		r.logger.Error("syncer: run failed", "trigger", trigger, "error", err)
	} else {
		r.logger.Info("syncer: run finished",
			"trigger", trigger,
			"outcome", res.Outcome(),
			"report_date", slots.Deref(res.SourceReportDate, ""),
			"records", res.RecordsCount,
			"specialists", res.SpecialistsCount,
			"changes", res.ChangesCount,
			"notifications", res.NotificationsCount,
		)
	}
	finishedAt := r.now()

	span.SetAttributes(
		attribute.String("slotwatch.outcome", res.Outcome()),
		attribute.Int("slotwatch.changes", res.ChangesCount),
		attribute.Int("slotwatch.notifications", res.NotificationsCount),
	)
	if r.metrics != nil {
		r.metrics.ObserveSync(res.Outcome(), res.ChangesCount, res.NotificationsCount, finishedAt.Sub(startedAt))
	}
	if r.runs != nil {
		if err := r.runs.RecordRun(context.WithoutCancel(ctx), startedAt, finishedAt, res); err != nil {
			r.logger.Warn("syncer: failed to record run", "error", err)
		}
	}
	return res
}

func (r *Runner) run(ctx context.Context, trigger Trigger) (Result, error) {
	previous, err := r.snapshots.LatestSnapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("syncer: load latest snapshot: %w", err)
	}

	rep, err := r.source.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	current := report.Snapshot(rep, r.now())
	if current.RecordsCount == 0 {
		return Result{}, errors.New(reasonEmpty)
	}

	res := Result{
		OK:               true,
		Trigger:          trigger,
		SourceReportDate: slots.StringPtr(current.SourceReportDate),
		SourceReportURL:  slots.StringPtr(current.SourceReportURL),
		RecordsCount:     current.RecordsCount,
		SpecialistsCount: len(current.BySpecialist),
	}

	same, err := sameContent(previous, current)
	if err != nil {
		return Result{}, err
	}
	if same {
		res.Skipped = true
		res.Reason = reasonUnchanged
		return res, nil
	}

	detected := changes.Detect(previous, current)

	subs, err := r.activeSubscriptions(ctx)
	if err != nil {
		return Result{}, err
	}
	sent := r.notifier.Run(ctx, subs, detected)

	// Notifications are stored first: a failed push leaves the old snapshot in
	// place, so the next run detects the same changes again.
	if err := r.notifications.PushNotifications(ctx, sent); err != nil {
		return Result{}, fmt.Errorf("syncer: push notifications: %w", err)
	}
	if err := r.snapshots.SaveSnapshot(ctx, current); err != nil {
		return Result{}, fmt.Errorf("syncer: save snapshot: %w", err)
	}

	if r.archiver != nil {
		if err := r.archiver.ArchiveSnapshot(ctx, current, rep.Text); err != nil {
			r.logger.Warn("syncer: archive snapshot failed", "error", err, "report_date", current.SourceReportDate)
		}
	}

	res.ChangesCount = len(detected)
	res.NotificationsCount = len(sent)
	return res, nil
}

func (r *Runner) activeSubscriptions(ctx context.Context) ([]notify.Subscription, error) {
	all, err := r.subscriptions.Subscriptions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("syncer: list subscriptions: %w", err)
	}
	active := make([]notify.Subscription, 0, len(all))
	for _, sub := range all {
		if sub.Active {
			active = append(active, sub)
		}
	}
	return active, nil
}

// sameContent reports whether current republishes the stored snapshot:
// same report url and date and an identical specialist list.
func sameContent(previous, current *slots.Snapshot) (bool, error) {
	if previous == nil {
		return false, nil
	}
	if previous.SourceReportURL != current.SourceReportURL || previous.SourceReportDate != current.SourceReportDate {
		return false, nil
	}
	prev, err := json.Marshal(previous.BySpecialist)
	if err != nil {
		return false, fmt.Errorf("syncer: hash previous snapshot: %w", err)
	}
	cur, err := json.Marshal(current.BySpecialist)
	if err != nil {
		return false, fmt.Errorf("syncer: hash current snapshot: %w", err)
	}
	return string(prev) == string(cur), nil
}
