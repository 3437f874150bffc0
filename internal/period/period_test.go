package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Period
	}{
		{"", All},
		{"all", All},
		{"today", Today},
		{"WEEK", Week},
		{" month ", Month},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := Parse("year")
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	// Thursday afternoon
	anchor := time.Date(2024, 5, 16, 15, 4, 5, 0, time.UTC)

	from, to, ok := Today.Range(anchor)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), to)

	from, to, ok = Week.Range(anchor)
	require.True(t, ok)
	assert.Equal(t, time.Monday, from.Weekday())
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), to)

	from, to, ok = Month.Range(anchor)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, ok = All.Range(anchor)
	assert.False(t, ok)
}

func TestWeekRangeOnSunday(t *testing.T) {
	sunday := time.Date(2024, 5, 19, 23, 0, 0, 0, time.UTC)
	from, to, _ := Week.Range(sunday)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), from)
	assert.True(t, sunday.Before(to))
}

func TestRangeKeepsLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	anchor := time.Date(2024, 1, 31, 22, 0, 0, 0, loc)
	from, to, _ := Month.Range(anchor)
	assert.Equal(t, loc, from.Location())
	assert.Equal(t, time.February, to.Month())
}
