package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SlotMetrics exposes counters/histograms for sync runs, deliveries, queries
// and bot commands.
type SlotMetrics struct {
	syncRuns      *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	changes       prometheus.Counter
	notifications prometheus.Counter
	deliveries    *prometheus.CounterVec
	answers       *prometheus.CounterVec
	botCommands   *prometheus.CounterVec
}

func NewSlotMetrics(reg prometheus.Registerer) *SlotMetrics {
	m := &SlotMetrics{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total sync runs by outcome",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotwatch",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of sync runs",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 45, 90},
		}, []string{"outcome"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "sync",
			Name:      "changes_total",
			Help:      "Total slot changes detected",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "sync",
			Name:      "notifications_total",
			Help:      "Total notifications recorded",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Total outbound notification deliveries",
		}, []string{"channel", "outcome"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "query",
			Name:      "answers_total",
			Help:      "Total query answers by kind",
		}, []string{"kind", "cached"}),
		botCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Total telegram bot commands handled",
		}, []string{"command"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.syncRuns, m.syncDuration, m.changes, m.notifications, m.deliveries, m.answers, m.botCommands)
	return m
}

func (m *SlotMetrics) ObserveSync(outcome string, changes, notifications int, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	m.syncDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.changes.Add(float64(changes))
	m.notifications.Add(float64(notifications))
}

func (m *SlotMetrics) ObserveDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, outcome).Inc()
}

func (m *SlotMetrics) ObserveQuery(kind string, cached bool) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(kind, strconv.FormatBool(cached)).Inc()
}

func (m *SlotMetrics) ObserveCommand(command string) {
	if m == nil {
		return
	}
	m.botCommands.WithLabelValues(command).Inc()
}
