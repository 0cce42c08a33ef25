package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotDate(t *testing.T) {
	got, ok := ParseSlotDate("05.01.2025. 09:30")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.January, 5, 9, 30, 0, 0, time.Local), got)
	assert.Equal(t, "05.01.2025. 09:30", FormatSlotDate(got))

	_, ok = ParseSlotDate("05.01.2025.09:30")
	assert.True(t, ok, "space after the trailing dot is optional")
}

func TestParseSlotDateRejectsMalformed(t *testing.T) {
	for _, value := range []string{
		"",
		"5.1.2025. 09:30",
		"05.01.2025 09:30",
		"31.02.2025. 10:00",
		"01.13.2025. 10:00",
		"00.01.2025. 10:00",
		"01.01.2025. 24:00",
		"01.01.2025. 10:60",
		"nepoznato",
	} {
		_, ok := ParseSlotDate(value)
		assert.False(t, ok, "value=%q", value)
	}
}

func TestEarlier(t *testing.T) {
	a := StringPtr("01.02.2025. 08:00")
	b := StringPtr("02.02.2025. 08:00")

	assert.True(t, Earlier(a, b))
	assert.False(t, Earlier(b, a))
	assert.False(t, Earlier(a, a))
	assert.True(t, Earlier(a, nil))
	assert.False(t, Earlier(nil, a))
	assert.False(t, Earlier(StringPtr("bogus"), nil))
}
