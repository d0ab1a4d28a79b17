package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayMatchesFormat(t *testing.T) {
	today := Today()
	parsed, err := ParseDay(today)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Year(), parsed.Year())
}

func TestFormatDayRoundTrip(t *testing.T) {
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	formatted := FormatDay(day)
	assert.Equal(t, "2024-03-07", formatted)

	parsed, err := ParseDay(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(day))
}

func TestParseDayRejectsGarbage(t *testing.T) {
	_, err := ParseDay("07/03/2024")
	assert.Error(t, err)
}
