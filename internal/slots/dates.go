package slots

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// SlotLayout is the report's timestamp layout, e.g. "05.01.2025. 09:30".
const SlotLayout = "02.01.2006. 15:04"

var slotDatePattern = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})\.\s*(\d{2}):(\d{2})$`)

// ParseSlotDate parses a report timestamp in local time. Malformed input,
// including out-of-range calendar values, yields ok=false.
func ParseSlotDate(value string) (time.Time, bool) {
	m := slotDatePattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatSlotDate renders t in the report layout.
func FormatSlotDate(t time.Time) string {
	return t.In(time.Local).Format(SlotLayout)
}

// sortValue orders timestamps chronologically; nil and unparseable values sort last.
func sortValue(value *string) int64 {
	if value == nil {
		return math.MaxInt64
	}
	t, ok := ParseSlotDate(*value)
	if !ok {
		return math.MaxInt64
	}
	return t.UnixMilli()
}

// Earlier reports whether a is strictly earlier than b. Unparseable values
// are never earlier than anything.
func Earlier(a, b *string) bool {
	return sortValue(a) < sortValue(b)
}
