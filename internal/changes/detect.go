// Package changes compares consecutive snapshots and reports availability
// improvements worth notifying about. Losing slots is deliberately not a change.
package changes

import "github.com/wolfman30/slot-watch/internal/slots"

// Detect returns the improvements from previous to current in current's order.
// A nil previous snapshot reports every specialist that currently has slots.
func Detect(previous, current *slots.Snapshot) []slots.Change {
	if current == nil {
		return nil
	}
	var out []slots.Change

	if previous == nil {
		for _, cur := range current.BySpecialist {
			if cur.HasSlots() {
				out = append(out, change(cur, nil, slots.ReasonNewSpecialistWithSlots))
			}
		}
		return out
	}

	prevByKey := make(map[string]slots.Specialist, len(previous.BySpecialist))
	for _, p := range previous.BySpecialist {
		prevByKey[p.Key] = p
	}

	for _, cur := range current.BySpecialist {
		prev, seen := prevByKey[cur.Key]
		switch {
		case !seen:
			if cur.HasSlots() {
				out = append(out, change(cur, nil, slots.ReasonNewSpecialistWithSlots))
			}
		case prev.Status == slots.StatusNoSlots && cur.HasSlots():
			out = append(out, change(cur, &prev, slots.ReasonOpenedSlots))
		case prev.HasSlots() && cur.HasSlots() && movedEarlier(prev.FirstAvailable, cur.FirstAvailable):
			out = append(out, change(cur, &prev, slots.ReasonEarlierSlot))
		}
	}
	return out
}

// movedEarlier requires both dates to parse and the textual values to differ.
func movedEarlier(prev, cur *string) bool {
	if prev == nil || cur == nil || *prev == *cur {
		return false
	}
	p, ok := slots.ParseSlotDate(*prev)
	if !ok {
		return false
	}
	c, ok := slots.ParseSlotDate(*cur)
	if !ok {
		return false
	}
	return c.Before(p)
}

func change(cur slots.Specialist, prev *slots.Specialist, reason slots.ChangeReason) slots.Change {
	c := slots.Change{
		Key:                   cur.Key,
		Section:               cur.Section,
		Specialist:            cur.Specialist,
		Reason:                reason,
		CurrentStatus:         cur.Status,
		CurrentFirstAvailable: cur.FirstAvailable,
	}
	if prev != nil {
		status := prev.Status
		c.PreviousStatus = &status
		c.PreviousFirstAvailable = prev.FirstAvailable
	}
	return c
}
