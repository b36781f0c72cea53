package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeOverlaps(t *testing.T) {
	lunch := Range{Start: 13 * 60, End: 14 * 60}

	tests := []struct {
		name string
		r    Range
		want bool
	}{
		{"inside", Range{Start: 13*60 + 30, End: 14 * 60}, true},
		{"covers", Range{Start: 12 * 60, End: 15 * 60}, true},
		{"starts before ends inside", Range{Start: 12 * 60, End: 13*60 + 15}, true},
		{"back to back after", Range{Start: 14 * 60, End: 14*60 + 30}, false},
		{"back to back before", Range{Start: 12 * 60, End: 13 * 60}, false},
		{"disjoint", Range{Start: 9 * 60, End: 10 * 60}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lunch.Overlaps(tt.r))
			assert.Equal(t, tt.want, tt.r.Overlaps(lunch))
		})
	}
}

func TestRangeValid(t *testing.T) {
	assert.True(t, Range{Start: 0, End: 24 * 60}.Valid())
	assert.False(t, Range{Start: 600, End: 600}.Valid())
	assert.False(t, Range{Start: 700, End: 600}.Valid())
	assert.False(t, Range{Start: -10, End: 60}.Valid())
	assert.False(t, Range{Start: 600, End: 25 * 60}.Valid())
}

func TestRangeContains(t *testing.T) {
	day := Range{Start: 8 * 60, End: 20 * 60}
	assert.True(t, day.Contains(Range{Start: 8 * 60, End: 9 * 60}))
	assert.True(t, day.Contains(day))
	assert.False(t, day.Contains(Range{Start: 7 * 60, End: 9 * 60}))
	assert.False(t, day.Contains(Range{Start: 19 * 60, End: 21 * 60}))
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("13:30")
	require.NoError(t, err)
	assert.Equal(t, 810, min)

	min, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, min)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("1pm")
	assert.Error(t, err)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "13:30", FormatClock(810))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "09:05", FormatClock(545))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", d)

	_, err = ParseDate("10.01.2025")
	assert.Error(t, err)
	_, err = ParseDate("2025-13-01")
	assert.Error(t, err)
}

func TestAt(t *testing.T) {
	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)

	at, err := At("2025-01-10", 810, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 10, 13, 30, 0, 0, loc), at)
}
