package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/report"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/store"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

const reportText = `Title: prvi slobodan termin
Markdown Content:
# 1 - INTERNA KLINIKA
100001 Reumatoloska ambulanta
01.10.2026. 10:00
20.10.2026. 09:30
100002 Kardioloska ambulanta 1
Nema slobodnih termina
`

var testMeta = slots.ReportMeta{Date: "15.10.2026", URL: "https://www.kccg.me/wp-content/uploads/2026/10/prvi-slobodan-termin.pdf"}

type fakeSource struct {
	mu     sync.Mutex
	report *report.Report
	err    error
	calls  int

	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context) (*report.Report, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	return f.report, f.err
}

type fakeArchiver struct {
	snapshots []*slots.Snapshot
	texts     []string
	err       error
}

func (f *fakeArchiver) ArchiveSnapshot(_ context.Context, snap *slots.Snapshot, text string) error {
	f.snapshots = append(f.snapshots, snap)
	f.texts = append(f.texts, text)
	return f.err
}

type fakeRuns struct {
	results []Result
	err     error
}

func (f *fakeRuns) RecordRun(_ context.Context, startedAt, finishedAt time.Time, res Result) error {
	f.results = append(f.results, res)
	return f.err
}

type fakeMetrics struct {
	outcomes []string
}

func (f *fakeMetrics) ObserveSync(outcome string, _, _ int, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
}

type harness struct {
	runner   *Runner
	mem      *store.Memory
	source   *fakeSource
	archiver *fakeArchiver
	runs     *fakeRuns
	metrics  *fakeMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		mem:      store.NewMemory(),
		source:   &fakeSource{report: &report.Report{Text: reportText, Meta: testMeta}},
		archiver: &fakeArchiver{},
		runs:     &fakeRuns{},
		metrics:  &fakeMetrics{},
	}
	runner, err := NewRunner(h.source,
		Stores{Snapshots: h.mem, Subscriptions: h.mem, Notifications: h.mem},
		notify.NewFanout(logging.Discard()),
		logging.Discard(),
		WithArchiver(h.archiver),
		WithRunRecorder(h.runs),
		WithMetrics(h.metrics),
		WithClock(func() time.Time { return time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	h.runner = runner
	return h
}

func (h *harness) subscribe(t *testing.T, id, userID, query string, active bool) {
	t.Helper()
	require.NoError(t, h.mem.UpsertSubscription(context.Background(), notify.Subscription{
		ID:     id,
		UserID: userID,
		Query:  query,
		Target: notify.InApp{},
		Active: active,
	}))
}

func TestRunFirstSyncNotifiesMatchingSubscriptions(t *testing.T) {
	h := newHarness(t)
	h.subscribe(t, "sub_1", "user-1", "reumatolog", true)
	h.subscribe(t, "sub_2", "user-2", "reumatolog", false)
	h.subscribe(t, "sub_3", "user-3", "kardiolog", true)

	res := h.runner.Run(context.Background(), TriggerManual)

	assert.True(t, res.OK)
	assert.False(t, res.Skipped)
	assert.Equal(t, TriggerManual, res.Trigger)
	assert.Equal(t, "15.10.2026", slots.Deref(res.SourceReportDate, ""))
	assert.Equal(t, testMeta.URL, slots.Deref(res.SourceReportURL, ""))
	assert.Equal(t, 2, res.RecordsCount)
	assert.Equal(t, 2, res.SpecialistsCount)
	assert.Equal(t, 1, res.ChangesCount, "only the open rheumatology row is new")
	assert.Equal(t, 1, res.NotificationsCount)
	assert.Empty(t, res.Reason)

	latest, err := h.mem.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "15.10.2026", latest.SourceReportDate)

	got, err := h.mem.Notifications(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Reumatoloska ambulanta", got[0].Payload.Specialist)

	none, err := h.mem.Notifications(context.Background(), "user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.Len(t, h.archiver.snapshots, 1)
	assert.Equal(t, reportText, h.archiver.texts[0])
	require.Len(t, h.runs.results, 1)
	assert.Equal(t, res, h.runs.results[0])
	assert.Equal(t, []string{"synced"}, h.metrics.outcomes)
}

func TestRunUnchangedReportIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.subscribe(t, "sub_1", "user-1", "reumatolog", true)

	first := h.runner.Run(context.Background(), TriggerCron)
	require.True(t, first.OK)

	second := h.runner.Run(context.Background(), TriggerCron)
	assert.True(t, second.OK)
	assert.True(t, second.Skipped)
	assert.Equal(t, reasonUnchanged, second.Reason)
	assert.Equal(t, 0, second.ChangesCount)
	assert.Equal(t, 0, second.NotificationsCount)
	assert.Equal(t, 2, second.RecordsCount)

	got, err := h.mem.Notifications(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, h.archiver.snapshots, 1)
	assert.Equal(t, []string{"synced", "skipped"}, h.metrics.outcomes)
}

func TestRunNewReportDateWithSameRowsSavesWithoutChanges(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.runner.Run(context.Background(), TriggerCron).OK)

	h.source.report = &report.Report{Text: reportText, Meta: slots.ReportMeta{Date: "16.10.2026", URL: testMeta.URL}}
	res := h.runner.Run(context.Background(), TriggerCron)

	assert.True(t, res.OK)
	assert.False(t, res.Skipped)
	assert.Equal(t, 0, res.ChangesCount)

	byDate, err := h.mem.SnapshotByDate(context.Background(), "16.10.2026")
	require.NoError(t, err)
	assert.NotNil(t, byDate)
}

func TestRunFetchFailure(t *testing.T) {
	h := newHarness(t)
	h.source.report = nil
	h.source.err = errors.New("report: home fetch: connection refused")

	res := h.runner.Run(context.Background(), TriggerLambda)

	assert.False(t, res.OK)
	assert.False(t, res.Skipped)
	assert.Nil(t, res.SourceReportDate)
	assert.Equal(t, "report: home fetch: connection refused", res.Reason)

	latest, err := h.mem.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.Empty(t, h.archiver.snapshots)
	assert.Equal(t, []string{"failed"}, h.metrics.outcomes)
	require.Len(t, h.runs.results, 1)
	assert.False(t, h.runs.results[0].OK)
}

func TestRunEmptyReportFails(t *testing.T) {
	h := newHarness(t)
	h.source.report = &report.Report{Text: "Strana 1 od 1\n", Meta: testMeta}

	res := h.runner.Run(context.Background(), TriggerCron)

	assert.False(t, res.OK)
	assert.Equal(t, reasonEmpty, res.Reason)
	latest, err := h.mem.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRunSideEffectFailuresDoNotFailTheRun(t *testing.T) {
	h := newHarness(t)
	h.archiver.err = errors.New("s3 unavailable")
	h.runs.err = errors.New("db unavailable")

	res := h.runner.Run(context.Background(), TriggerCron)
	assert.True(t, res.OK)
	assert.False(t, res.Skipped)
}

// flakyNotifications fails PushNotifications until err is cleared.
type flakyNotifications struct {
	*store.Memory
	err error
}

func (f *flakyNotifications) PushNotifications(ctx context.Context, notifications []notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	return f.Memory.PushNotifications(ctx, notifications)
}

func TestRunNotificationFailureKeepsPreviousSnapshot(t *testing.T) {
	mem := store.NewMemory()
	notes := &flakyNotifications{Memory: mem, err: errors.New("db unavailable")}
	runner, err := NewRunner(&fakeSource{report: &report.Report{Text: reportText, Meta: testMeta}},
		Stores{Snapshots: mem, Subscriptions: mem, Notifications: notes},
		notify.NewFanout(logging.Discard()),
		logging.Discard(),
	)
	require.NoError(t, err)
	require.NoError(t, mem.UpsertSubscription(context.Background(), notify.Subscription{
		ID: "sub_1", UserID: "user-1", Query: "reumatolog", Target: notify.InApp{}, Active: true,
	}))

	failed := runner.Run(context.Background(), TriggerCron)
	assert.False(t, failed.OK)
	assert.Contains(t, failed.Reason, "push notifications")

	latest, err := mem.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest, "snapshot must not be saved when notifications were lost")

	notes.err = nil
	retry := runner.Run(context.Background(), TriggerCron)
	assert.True(t, retry.OK)
	assert.False(t, retry.Skipped)
	assert.Equal(t, 1, retry.NotificationsCount)

	got, err := mem.Notifications(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Reumatoloska ambulanta", got[0].Payload.Specialist)
}

func TestRunOverlapIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.source.entered = make(chan struct{})
	h.source.release = make(chan struct{})

	done := make(chan Result, 1)
	go func() { done <- h.runner.Run(context.Background(), TriggerCron) }()
	<-h.source.entered

	overlapping := h.runner.Run(context.Background(), TriggerManual)
	assert.True(t, overlapping.OK)
	assert.True(t, overlapping.Skipped)
	assert.Equal(t, reasonRunning, overlapping.Reason)

	close(h.source.release)
	first := <-done
	assert.True(t, first.OK)
	assert.False(t, first.Skipped)
}

func TestNewRunnerValidates(t *testing.T) {
	mem := store.NewMemory()
	fanout := notify.NewFanout(nil)

	_, err := NewRunner(nil, Stores{Snapshots: mem, Subscriptions: mem, Notifications: mem}, fanout, nil)
	assert.Error(t, err)
	_, err = NewRunner(&fakeSource{}, Stores{Snapshots: mem}, fanout, nil)
	assert.Error(t, err)
	_, err = NewRunner(&fakeSource{}, Stores{Snapshots: mem, Subscriptions: mem, Notifications: mem}, nil, nil)
	assert.Error(t, err)
}

func TestResultOutcome(t *testing.T) {
	assert.Equal(t, "failed", Result{}.Outcome())
	assert.Equal(t, "skipped", Result{OK: true, Skipped: true}.Outcome())
	assert.Equal(t, "synced", Result{OK: true}.Outcome())
}
