// Package slots holds the appointment-availability data model shared by the
// parser, the query engine, the change detector and the notification fanout.
package slots

import "time"

// Status is the availability verdict of a report row or an aggregated specialist.
type Status string

const (
	StatusHasSlots Status = "HAS_SLOTS"
	StatusNoSlots  Status = "NO_SLOTS"
)

// Record is one raw parsed report row. Records are never mutated after parsing.
type Record struct {
	Section          string  `json:"section"`
	Code             string  `json:"code"`
	Specialist       string  `json:"specialist"`
	Status           Status  `json:"status"`
	FirstAvailable   *string `json:"firstAvailable"`
	LastBooked       *string `json:"lastBooked"`
	SourceReportDate string  `json:"sourceReportDate"`
	SourceReportURL  string  `json:"sourceReportUrl"`
}

// Specialist is the aggregated, de-duplicated view of every record sharing a key.
type Specialist struct {
	Key            string   `json:"key"`
	Section        string   `json:"section"`
	Specialist     string   `json:"specialist"`
	Status         Status   `json:"status"`
	FirstAvailable *string  `json:"firstAvailable"`
	Codes          []string `json:"codes"`
	Variants       int      `json:"variants"`
}

// HasSlots reports whether the entry currently has free slots.
func (s Specialist) HasSlots() bool { return s.Status == StatusHasSlots }

// Snapshot is the complete aggregated state of one report ingestion.
type Snapshot struct {
	GeneratedAt      time.Time    `json:"generatedAt"`
	SourceReportDate string       `json:"sourceReportDate"`
	SourceReportURL  string       `json:"sourceReportUrl"`
	RecordsCount     int          `json:"recordsCount"`
	BySpecialist     []Specialist `json:"bySpecialist"`
}

// ReportMeta identifies the published report a batch of records came from.
type ReportMeta struct {
	Date string `json:"date"`
	URL  string `json:"url"`
}

// ChangeReason classifies an improvement between two snapshots.
type ChangeReason string

const (
	ReasonNewSpecialistWithSlots ChangeReason = "NEW_SPECIALIST_WITH_SLOTS"
	ReasonOpenedSlots            ChangeReason = "OPENED_SLOTS"
	ReasonEarlierSlot            ChangeReason = "EARLIER_SLOT"
)

// Change is a detected transition for one specialist key.
type Change struct {
	Key                    string       `json:"key"`
	Section                string       `json:"section"`
	Specialist             string       `json:"specialist"`
	Reason                 ChangeReason `json:"reason"`
	PreviousStatus         *Status      `json:"previousStatus"`
	CurrentStatus          Status       `json:"currentStatus"`
	PreviousFirstAvailable *string      `json:"previousFirstAvailable"`
	CurrentFirstAvailable  *string      `json:"currentFirstAvailable"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Deref returns the pointed-to string or fallback when p is nil.
func Deref(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
