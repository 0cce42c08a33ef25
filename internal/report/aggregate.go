package report

import (
	"sort"
	"time"

	"github.com/wolfman30/slot-watch/internal/slots"
)

// Aggregate groups records by specialist key and assembles a snapshot in canonical order.
func Aggregate(records []slots.Record, meta slots.ReportMeta, generatedAt time.Time) *slots.Snapshot {
	groups := make(map[string][]slots.Record)
	var order []string
	for _, rec := range records {
		key := slots.Key(rec.Section, rec.Specialist)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	entries := make([]slots.Specialist, 0, len(order))
	for _, key := range order {
		entries = append(entries, aggregateGroup(key, groups[key]))
	}
	slots.Sort(entries)

	return &slots.Snapshot{
		GeneratedAt:      generatedAt.UTC(),
		SourceReportDate: meta.Date,
		SourceReportURL:  meta.URL,
		RecordsCount:     len(records),
		BySpecialist:     entries,
	}
}

func aggregateGroup(key string, members []slots.Record) slots.Specialist {
	entry := slots.Specialist{
		Key:        key,
		Section:    members[0].Section,
		Specialist: members[0].Specialist,
		Status:     slots.StatusNoSlots,
		Variants:   len(members),
	}

	codes := make(map[string]struct{})
	for _, m := range members {
		codes[m.Code] = struct{}{}
		if m.Status != slots.StatusHasSlots {
			continue
		}
		entry.Status = slots.StatusHasSlots
		if m.FirstAvailable == nil {
			continue
		}
		if entry.FirstAvailable == nil || slots.Earlier(m.FirstAvailable, entry.FirstAvailable) {
			entry.FirstAvailable = slots.StringPtr(*m.FirstAvailable)
		}
	}

	entry.Codes = make([]string, 0, len(codes))
	for code := range codes {
		entry.Codes = append(entry.Codes, code)
	}
	sort.Strings(entry.Codes)
	return entry
}
