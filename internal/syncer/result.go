package syncer

// Trigger names what started a sync run.
type Trigger string

const (
	TriggerCron     Trigger = "cron"
	TriggerManual   Trigger = "manual"
	TriggerTelegram Trigger = "telegram"
	TriggerLambda   Trigger = "lambda"
	TriggerTicker   Trigger = "ticker"
	TriggerQuery    Trigger = "query"
)

const (
	reasonUnchanged = "No changes since previous snapshot"
	reasonRunning   = "sync already running"
	reasonEmpty     = "report contained no parseable rows"
)

// Result summarizes one sync run. Failures are reported with OK false and a
// Reason rather than as an error.
type Result struct {
	OK                 bool    `json:"ok"`
	Skipped            bool    `json:"skipped"`
	Trigger            Trigger `json:"trigger"`
	SourceReportDate   *string `json:"sourceReportDate"`
	SourceReportURL    *string `json:"sourceReportUrl"`
	RecordsCount       int     `json:"recordsCount"`
	SpecialistsCount   int     `json:"specialistsCount"`
	ChangesCount       int     `json:"changesCount"`
	NotificationsCount int     `json:"notificationsCount"`
	Reason             string  `json:"reason,omitempty"`
}

// Outcome is a short label for metrics and logs.
func (r Result) Outcome() string {
	switch {
	case !r.OK:
		return "failed"
	case r.Skipped:
		return "skipped"
	default:
		return "synced"
	}
}
