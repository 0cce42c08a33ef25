package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func entry(section, specialist string, status Status, first *string) Specialist {
	return Specialist{Key: Key(section, specialist), Section: section, Specialist: specialist, Status: status, FirstAvailable: first}
}

func TestSortCanonicalOrder(t *testing.T) {
	items := []Specialist{
		entry("B", "x", StatusNoSlots, nil),
		entry("B", "y", StatusHasSlots, StringPtr("10.03.2025. 08:00")),
		entry("A", "z", StatusHasSlots, nil),
		entry("A", "w", StatusHasSlots, StringPtr("01.03.2025. 08:00")),
		entry("A", "v", StatusHasSlots, StringPtr("10.03.2025. 08:00")),
		entry("A", "u", StatusNoSlots, nil),
	}

	Sort(items)

	var keys []string
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	assert.Equal(t, []string{"A::w", "A::v", "B::y", "A::z", "A::u", "B::x"}, keys)
}

func TestEarliest(t *testing.T) {
	items := []Specialist{
		entry("A", "no", StatusNoSlots, StringPtr("01.01.2025. 08:00")),
		entry("A", "late", StatusHasSlots, StringPtr("05.01.2025. 08:00")),
		entry("A", "early", StatusHasSlots, StringPtr("02.01.2025. 08:00")),
	}

	best, ok := Earliest(items)
	assert.True(t, ok)
	assert.Equal(t, "early", best.Specialist)

	_, ok = Earliest(items[:1])
	assert.False(t, ok)
}

func TestKeyIsCaseSensitive(t *testing.T) {
	assert.Equal(t, "INTERNA KLINIKA::Ambulanta", Key("INTERNA KLINIKA", "Ambulanta"))
	assert.NotEqual(t, Key("a", "b"), Key("A", "b"))
}
