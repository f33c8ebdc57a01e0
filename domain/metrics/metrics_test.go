package metrics

import (
	"testing"
	"time"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
}

func TestShiftFromTimeBoundaries(t *testing.T) {
	tests := []struct {
		h, m int
		want production.Shift
	}{
		{0, 0, production.ShiftNight},
		{5, 59, production.ShiftNight},
		{6, 0, production.ShiftMorning},
		{13, 59, production.ShiftMorning},
		{14, 0, production.ShiftAfternoon},
		{21, 59, production.ShiftAfternoon},
		{22, 0, production.ShiftNight},
		{23, 59, production.ShiftNight},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShiftFromTime(clock(tt.h, tt.m)), "%02d:%02d", tt.h, tt.m)
	}
}

func TestShiftPartitionIsContiguous(t *testing.T) {
	// Walk the day minute by minute: exactly three transitions, each into a
	// different shift, and every minute classified.
	counts := map[production.Shift]int{}
	transitions := 0
	prev := ShiftFromTime(clock(23, 59))

	for minute := 0; minute < 24*60; minute++ {
		s := DefaultShiftSchedule().ShiftForMinute(minute)
		require.True(t, s.Valid())
		counts[s]++
		if s != prev {
			transitions++
		}
		prev = s
	}

	assert.Equal(t, 3, transitions)
	assert.Equal(t, 8*60, counts[production.ShiftMorning])
	assert.Equal(t, 8*60, counts[production.ShiftAfternoon])
	assert.Equal(t, 8*60, counts[production.ShiftNight])
}

func TestCustomSchedule(t *testing.T) {
	s := ShiftSchedule{MorningStart: 7, AfternoonStart: 15, NightStart: 23}
	require.NoError(t, s.Validate())
	assert.Equal(t, production.ShiftNight, s.ShiftForHour(6))
	assert.Equal(t, production.ShiftMorning, s.ShiftForHour(7))
	assert.Equal(t, production.ShiftAfternoon, s.ShiftForHour(22))

	bad := ShiftSchedule{MorningStart: 14, AfternoonStart: 6, NightStart: 22}
	assert.True(t, errors.Is(bad.Validate(), errors.CodeConfigInvalid))
}

func TestEfficiency(t *testing.T) {
	assert.Equal(t, 0.0, Efficiency(0, 0))
	assert.Equal(t, 0.0, Efficiency(50, 0))
	assert.Equal(t, 95.0, Efficiency(95, 100))
	assert.Equal(t, 150.0, Efficiency(150, 100), "not clamped")
	for _, target := range []float64{1, 3, 7, 120} {
		for _, actual := range []float64{0, 2, 9, 333} {
			assert.Equal(t, 100*actual/target, Efficiency(actual, target))
		}
	}
}

func TestDefectRate(t *testing.T) {
	assert.Equal(t, 0.0, DefectRate(5, 0))
	assert.Equal(t, 5.0, DefectRate(5, 100))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{59, "59m"},
		{60, "1h 0m"},
		{125, "2h 5m"},
	}
	for _, tt := range tests {
		got, err := FormatDuration(tt.minutes)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for m := 60; m < 600; m += 37 {
		got, _ := FormatDuration(m)
		assert.Contains(t, got, "h ")
		assert.Contains(t, got, "m")
	}

	_, err := FormatDuration(-1)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestFormatPercentageAndParseDate(t *testing.T) {
	assert.Equal(t, "12.3%", FormatPercentage(12.345, 1))
	assert.Equal(t, "12%", FormatPercentage(12.345, -1))

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("29/02/2024")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}
