// Package metrics holds the pure production metrics shown next to records:
// efficiency, defect rate, shift classification and duration formatting.
package metrics

import (
	"fmt"
	"time"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
)

// ShiftSchedule holds the hour each shift starts at. Night runs from
// NightStart past midnight up to MorningStart.
type ShiftSchedule struct {
	MorningStart   int `json:"morning_start" yaml:"morning_start"`
	AfternoonStart int `json:"afternoon_start" yaml:"afternoon_start"`
	NightStart     int `json:"night_start" yaml:"night_start"`
}

// DefaultShiftSchedule returns the 06:00 / 14:00 / 22:00 schedule
func DefaultShiftSchedule() ShiftSchedule {
	return ShiftSchedule{MorningStart: 6, AfternoonStart: 14, NightStart: 22}
}

// Validate checks that the boundaries are increasing hours of one day
func (s ShiftSchedule) Validate() error {
	if s.MorningStart < 0 || s.NightStart > 23 ||
		s.MorningStart >= s.AfternoonStart || s.AfternoonStart >= s.NightStart {
		return errors.ConfigInvalid(fmt.Sprintf(
			"shift boundaries must satisfy 0 <= morning < afternoon < night <= 23, got %d/%d/%d",
			s.MorningStart, s.AfternoonStart, s.NightStart))
	}
	return nil
}

// ShiftAt classifies a time of day. Only the clock part of t is used.
func (s ShiftSchedule) ShiftAt(t time.Time) production.Shift {
	return s.ShiftForMinute(t.Hour()*60 + t.Minute())
}

// ShiftForHour classifies a whole hour (0-23)
func (s ShiftSchedule) ShiftForHour(hour int) production.Shift {
	return s.ShiftForMinute(hour * 60)
}

// ShiftForMinute classifies a minute of the day (0-1439)
func (s ShiftSchedule) ShiftForMinute(minute int) production.Shift {
	switch {
	case minute >= s.MorningStart*60 && minute < s.AfternoonStart*60:
		return production.ShiftMorning
	case minute >= s.AfternoonStart*60 && minute < s.NightStart*60:
		return production.ShiftAfternoon
	default:
		return production.ShiftNight
	}
}

// ShiftFromTime classifies t with the default schedule
func ShiftFromTime(t time.Time) production.Shift {
	return DefaultShiftSchedule().ShiftAt(t)
}

// ShiftFromHour classifies an hour with the default schedule
func ShiftFromHour(hour int) production.Shift {
	return DefaultShiftSchedule().ShiftForHour(hour)
}

// Efficiency is actual output as a percentage of target; 0 when there is no target.
func Efficiency(actual, target float64) float64 {
	if target == 0 {
		return 0
	}
	return 100 * actual / target
}

// DefectRate is defects as a percentage of output; 0 when nothing was produced.
func DefectRate(defects, output float64) float64 {
	if output == 0 {
		return 0
	}
	return 100 * defects / output
}

// FormatDuration renders minutes as "2h 5m" or "45m"
func FormatDuration(minutes int) (string, error) {
	if minutes < 0 {
		return "", errors.InvalidInput(fmt.Sprintf("duration cannot be negative: %d minutes", minutes))
	}
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60), nil
	}
	return fmt.Sprintf("%dm", minutes), nil
}

// FormatPercentage renders a percentage with the given number of decimals
func FormatPercentage(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (time.Time, error) {
	d, err := production.ParseDate(s)
	if err != nil {
		return time.Time{}, errors.InvalidInput(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return d, nil
}
