package csvstore

import (
	"math"
	"strconv"
	"strings"

	"hourlysheet/adapters/excel"
	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
)

// requiredImportColumns must be present in the header of an imported sheet.
var requiredImportColumns = []string{
	production.ColDate,
	production.ColMachineID,
	production.ColOperatorName,
	production.ColProductName,
	production.ColTargetOutput,
	production.ColActualOutput,
	production.ColDefectsRework,
	production.ColDowntimeMinutes,
}

// decodeRow builds a record from a row keyed by column name. It returns the
// columns that could not be parsed or break a record invariant; absent
// optional columns decode to their zero value. An empty shift is derived
// from the hour.
func decodeRow(row excel.RawRowData, schedule metrics.ShiftSchedule) (production.HourlyRecord, []string) {
	var rec production.HourlyRecord
	var bad []string
	mark := func(col string) {
		for _, c := range bad {
			if c == col {
				return
			}
		}
		bad = append(bad, col)
	}

	if d, err := production.ParseDate(row[production.ColDate]); err == nil {
		rec.Date = d
	} else {
		mark(production.ColDate)
	}

	if s := strings.TrimSpace(row[production.ColShift]); s != "" {
		if shift, ok := production.ParseShift(s); ok {
			rec.Shift = shift
		} else {
			mark(production.ColShift)
		}
	}

	if h, ok := parseInt(row[production.ColHour]); ok {
		rec.Hour = h
	} else {
		mark(production.ColHour)
	}

	rec.MachineID = strings.TrimSpace(row[production.ColMachineID])
	rec.OperatorName = strings.TrimSpace(row[production.ColOperatorName])
	rec.ProductName = strings.TrimSpace(row[production.ColProductName])
	rec.ReasonForDowntime = strings.TrimSpace(row[production.ColReasonForDowntime])
	rec.OperatorRemarks = strings.TrimSpace(row[production.ColOperatorRemarks])

	floats := []struct {
		col string
		dst *float64
	}{
		{production.ColTargetOutput, &rec.TargetOutput},
		{production.ColActualOutput, &rec.ActualOutput},
		{production.ColCumulativeOutput, &rec.CumulativeOutput},
		{production.ColDowntimeMinutes, &rec.DowntimeMinutes},
	}
	for _, f := range floats {
		v, ok := parseFloat(row[f.col])
		if !ok {
			mark(f.col)
			continue
		}
		*f.dst = v
	}

	if d, ok := parseInt(row[production.ColDefectsRework]); ok {
		rec.DefectsRework = d
	} else {
		mark(production.ColDefectsRework)
	}

	for _, col := range rec.Validate() {
		mark(col)
	}

	if rec.Shift == "" {
		rec.Shift = schedule.ShiftForHour(rec.Hour)
	}

	return rec, orderColumns(bad)
}

// encodeRecord renders a record in store column order
func encodeRecord(r production.HourlyRecord) []string {
	return []string{
		r.DateString(),
		string(r.Shift),
		strconv.Itoa(r.Hour),
		r.MachineID,
		r.OperatorName,
		r.ProductName,
		formatFloat(r.TargetOutput),
		formatFloat(r.ActualOutput),
		formatFloat(r.CumulativeOutput),
		strconv.Itoa(r.DefectsRework),
		formatFloat(r.DowntimeMinutes),
		r.ReasonForDowntime,
		r.OperatorRemarks,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseFloat accepts an empty cell as zero
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseInt accepts whole numbers written as floats ("3.0"), since
// spreadsheets often store counts that way.
func parseInt(s string) (int, bool) {
	v, ok := parseFloat(s)
	if !ok || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// orderColumns sorts column names into store order
func orderColumns(cols []string) []string {
	if len(cols) < 2 {
		return cols
	}
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	ordered := make([]string, 0, len(cols))
	for _, c := range production.Columns {
		if set[c] {
			ordered = append(ordered, c)
		}
	}
	return ordered
}
