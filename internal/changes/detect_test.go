package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/slot-watch/internal/slots"
)

func specialist(name string, status slots.Status, first string) slots.Specialist {
	s := slots.Specialist{Key: slots.Key("INTERNA KLINIKA", name), Section: "INTERNA KLINIKA", Specialist: name, Status: status}
	if first != "" {
		s.FirstAvailable = slots.StringPtr(first)
	}
	return s
}

func snapshot(items ...slots.Specialist) *slots.Snapshot {
	return &slots.Snapshot{BySpecialist: items}
}

func TestDetectWithoutPrevious(t *testing.T) {
	current := snapshot(
		specialist("A", slots.StatusHasSlots, "01.11.2026. 08:00"),
		specialist("B", slots.StatusNoSlots, ""),
	)

	got := Detect(nil, current)

	require.Len(t, got, 1)
	assert.Equal(t, slots.ReasonNewSpecialistWithSlots, got[0].Reason)
	assert.Nil(t, got[0].PreviousStatus)
	assert.Nil(t, got[0].PreviousFirstAvailable)
}

func TestDetectTransitions(t *testing.T) {
	previous := snapshot(
		specialist("opened", slots.StatusNoSlots, ""),
		specialist("earlier", slots.StatusHasSlots, "10.11.2026. 08:00"),
		specialist("later", slots.StatusHasSlots, "10.11.2026. 08:00"),
		specialist("closed", slots.StatusHasSlots, "10.11.2026. 08:00"),
		specialist("same", slots.StatusHasSlots, "10.11.2026. 08:00"),
		specialist("bogus", slots.StatusHasSlots, "nepoznato"),
	)
	current := snapshot(
		specialist("opened", slots.StatusHasSlots, "12.11.2026. 08:00"),
		specialist("earlier", slots.StatusHasSlots, "03.11.2026. 08:00"),
		specialist("later", slots.StatusHasSlots, "20.11.2026. 08:00"),
		specialist("closed", slots.StatusNoSlots, ""),
		specialist("same", slots.StatusHasSlots, "10.11.2026. 08:00"),
		specialist("bogus", slots.StatusHasSlots, "01.11.2026. 08:00"),
		specialist("new", slots.StatusHasSlots, "15.11.2026. 08:00"),
		specialist("new-empty", slots.StatusNoSlots, ""),
	)

	got := Detect(previous, current)

	require.Len(t, got, 3)
	assert.Equal(t, "opened", got[0].Specialist)
	assert.Equal(t, slots.ReasonOpenedSlots, got[0].Reason)
	require.NotNil(t, got[0].PreviousStatus)
	assert.Equal(t, slots.StatusNoSlots, *got[0].PreviousStatus)

	assert.Equal(t, "earlier", got[1].Specialist)
	assert.Equal(t, slots.ReasonEarlierSlot, got[1].Reason)
	assert.Equal(t, "10.11.2026. 08:00", *got[1].PreviousFirstAvailable)
	assert.Equal(t, "03.11.2026. 08:00", *got[1].CurrentFirstAvailable)

	assert.Equal(t, "new", got[2].Specialist)
	assert.Equal(t, slots.ReasonNewSpecialistWithSlots, got[2].Reason)
}

func TestDetectIdenticalSnapshots(t *testing.T) {
	snap := snapshot(specialist("A", slots.StatusHasSlots, "01.11.2026. 08:00"))
	assert.Empty(t, Detect(snap, snap))
}
