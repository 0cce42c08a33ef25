// Package report turns the published availability report into snapshots:
// discovery and text extraction, the row parser, and per-specialist aggregation.
package report

import (
	"regexp"
	"strings"

	"github.com/wolfman30/slot-watch/internal/slots"
)

// continuationCode marks wrapped lines that the report layout prefixes with a fake code.
const continuationCode = "111111"

const markdownMarker = "Markdown Content:"

var (
	lineSplit     = regexp.MustCompile(`\r?\n`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	sectionHeader = regexp.MustCompile(`^#\s*\d+\s*-\s*(.+)$`)
	rowStart      = regexp.MustCompile(`^(\d{6})\s+(.+)$`)
	noSlotsPhrase = regexp.MustCompile(`(?i)Nema slobodnih termina`)
	timestamp     = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}\.\s*\d{2}:\d{2}`)
	nameSuffix    = regexp.MustCompile(`(?i)\s+111111\s+Ljekar specijalista u amb\..*$`)

	boilerplate = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Strana\s+\d+\s+od\s+\d+`),
		regexp.MustCompile(`(?i)^#\s*Klini`),
		regexp.MustCompile(`(?i)^Prvi slobodni termin$`),
		regexp.MustCompile(`(?i)^Datum Ambulanta`),
	}
)

// ExtractMarkdown drops the extraction service preamble, if any.
func ExtractMarkdown(raw string) string {
	if idx := strings.Index(raw, markdownMarker); idx >= 0 {
		return raw[idx+len(markdownMarker):]
	}
	return raw
}

type openRow struct {
	code  string
	name  string
	lines []string
}

// Parse runs a single forward pass over the extracted report text and returns
// one record per row, de-duplicated in first-seen order. Text with no section
// headers or row starts yields an empty slice.
func Parse(text string, meta slots.ReportMeta) []slots.Record {
	var (
		section string
		current *openRow
		rows    []slots.Record
	)

	flush := func() {
		if current == nil {
			return
		}
		if rec, ok := buildRecord(section, current, meta); ok {
			rows = append(rows, rec)
		}
		current = nil
	}

	for _, raw := range lineSplit.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			flush()
			section = collapse(m[1])
			continue
		}
		if isBoilerplate(line) {
			continue
		}
		if m := rowStart.FindStringSubmatch(line); m != nil {
			if m[1] == continuationCode && current != nil {
				current.lines = append(current.lines, line)
				continue
			}
			flush()
			current = &openRow{code: m[1], name: m[2], lines: []string{line}}
			continue
		}
		if current != nil {
			current.lines = append(current.lines, line)
		}
	}
	flush()

	return Dedupe(rows)
}

func buildRecord(section string, row *openRow, meta slots.ReportMeta) (slots.Record, bool) {
	specialist := cleanName(row.name)
	if specialist == "" {
		return slots.Record{}, false
	}

	block := collapse(strings.Join(row.lines, " "))
	noSlots := noSlotsPhrase.MatchString(block)

	var dates []string
	for _, m := range timestamp.FindAllString(block, -1) {
		dates = append(dates, collapse(m))
	}

	rec := slots.Record{
		Section:          section,
		Code:             row.code,
		Specialist:       specialist,
		Status:           slots.StatusHasSlots,
		SourceReportDate: meta.Date,
		SourceReportURL:  meta.URL,
	}
	if len(dates) > 0 {
		rec.LastBooked = slots.StringPtr(dates[0])
	}
	if noSlots {
		rec.Status = slots.StatusNoSlots
		return rec, true
	}
	// The first timestamp is the last booked marker; availability follows it.
	switch {
	case len(dates) >= 2:
		rec.FirstAvailable = slots.StringPtr(dates[1])
	case len(dates) == 1:
		rec.FirstAvailable = slots.StringPtr(dates[0])
	}
	return rec, true
}

// Dedupe collapses records that agree on every parsed field, keeping first-seen order.
func Dedupe(rows []slots.Record) []slots.Record {
	seen := make(map[string]struct{}, len(rows))
	out := make([]slots.Record, 0, len(rows))
	for _, row := range rows {
		key := strings.Join([]string{
			row.Section,
			row.Code,
			row.Specialist,
			string(row.Status),
			slots.Deref(row.FirstAvailable, ""),
			slots.Deref(row.LastBooked, ""),
		}, "|")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func isBoilerplate(line string) bool {
	for _, re := range boilerplate {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func cleanName(value string) string {
	return collapse(nameSuffix.ReplaceAllString(value, ""))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
