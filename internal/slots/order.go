package slots

import "sort"

// Key builds the composite specialist identity. It is case sensitive and not normalized.
func Key(section, specialist string) string {
	return section + "::" + specialist
}

// Less implements the canonical snapshot ordering: HAS_SLOTS first, then the
// earliest first available date, then section, then specialist.
func Less(a, b Specialist) bool {
	if a.Status != b.Status {
		return a.Status == StatusHasSlots
	}
	av, bv := sortValue(a.FirstAvailable), sortValue(b.FirstAvailable)
	if av != bv {
		return av < bv
	}
	if a.Section != b.Section {
		return a.Section < b.Section
	}
	return a.Specialist < b.Specialist
}

// Sort orders items in place using Less.
func Sort(items []Specialist) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}

// Earliest returns the HAS_SLOTS entry with the earliest first available date.
func Earliest(items []Specialist) (Specialist, bool) {
	var best Specialist
	found := false
	for _, item := range items {
		if !item.HasSlots() {
			continue
		}
		if !found || sortValue(item.FirstAvailable) < sortValue(best.FirstAvailable) {
			best = item
			found = true
		}
	}
	return best, found
}
