package production

import (
	"strings"
	"time"
)

// DateLayout is the on-disk and import format of the Date column.
const DateLayout = "2006-01-02"

// Shift is the production shift a record belongs to
type Shift string

const (
	ShiftMorning   Shift = "Morning"
	ShiftAfternoon Shift = "Afternoon"
	ShiftNight     Shift = "Night"
)

// Shifts lists the shifts in reporting order
var Shifts = []Shift{ShiftMorning, ShiftAfternoon, ShiftNight}

// ParseShift matches a shift name case-insensitively.
func ParseShift(s string) (Shift, bool) {
	trimmed := strings.TrimSpace(s)
	for _, shift := range Shifts {
		if strings.EqualFold(trimmed, string(shift)) {
			return shift, true
		}
	}
	return "", false
}

// Valid reports whether the shift is exactly one of the three known values
func (s Shift) Valid() bool {
	for _, shift := range Shifts {
		if s == shift {
			return true
		}
	}
	return false
}

func (s Shift) String() string { return string(s) }

// Column names of the backing store, in file order
const (
	ColDate              = "Date"
	ColShift             = "Shift"
	ColHour              = "Hour"
	ColMachineID         = "Machine_ID"
	ColOperatorName      = "Operator_Name"
	ColProductName       = "Product_Name"
	ColTargetOutput      = "Target_Output"
	ColActualOutput      = "Actual_Output"
	ColCumulativeOutput  = "Cumulative_Output"
	ColDefectsRework     = "Defects_Rework"
	ColDowntimeMinutes   = "Downtime_Minutes"
	ColReasonForDowntime = "Reason_for_Downtime"
	ColOperatorRemarks   = "Operator_Remarks"
)

// Columns is the fixed header of the record store
var Columns = []string{
	ColDate, ColShift, ColHour, ColMachineID, ColOperatorName, ColProductName,
	ColTargetOutput, ColActualOutput, ColCumulativeOutput, ColDefectsRework,
	ColDowntimeMinutes, ColReasonForDowntime, ColOperatorRemarks,
}

// HourlyRecord is one machine-hour observation
type HourlyRecord struct {
	Date              time.Time `json:"date"`
	Shift             Shift     `json:"shift"`
	Hour              int       `json:"hour"`
	MachineID         string    `json:"machine_id"`
	OperatorName      string    `json:"operator_name"`
	ProductName       string    `json:"product_name"`
	TargetOutput      float64   `json:"target_output"`
	ActualOutput      float64   `json:"actual_output"`
	CumulativeOutput  float64   `json:"cumulative_output"`
	DefectsRework     int       `json:"defects_rework"`
	DowntimeMinutes   float64   `json:"downtime_minutes"`
	ReasonForDowntime string    `json:"reason_for_downtime,omitempty"`
	OperatorRemarks   string    `json:"operator_remarks,omitempty"`
}

// DateString renders the record date in DateLayout
func (r HourlyRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// Validate returns the column names of every field that breaks the record
// invariants. An empty result means the record may be stored.
func (r HourlyRecord) Validate() []string {
	var invalid []string

	if r.Date.IsZero() {
		invalid = append(invalid, ColDate)
	}
	if r.Shift != "" && !r.Shift.Valid() {
		invalid = append(invalid, ColShift)
	}
	if r.Hour < 0 || r.Hour > 23 {
		invalid = append(invalid, ColHour)
	}
	if strings.TrimSpace(r.MachineID) == "" {
		invalid = append(invalid, ColMachineID)
	}
	if strings.TrimSpace(r.OperatorName) == "" {
		invalid = append(invalid, ColOperatorName)
	}
	if strings.TrimSpace(r.ProductName) == "" {
		invalid = append(invalid, ColProductName)
	}
	if r.TargetOutput < 0 {
		invalid = append(invalid, ColTargetOutput)
	}
	if r.ActualOutput < 0 {
		invalid = append(invalid, ColActualOutput)
	}
	if r.CumulativeOutput < 0 {
		invalid = append(invalid, ColCumulativeOutput)
	}
	if r.DefectsRework < 0 {
		invalid = append(invalid, ColDefectsRework)
	}
	if r.DowntimeMinutes < 0 {
		invalid = append(invalid, ColDowntimeMinutes)
	}

	return invalid
}

// Filters selects records for Query. Zero values mean "no filter".
type Filters struct {
	MachineID    string     `json:"machine_id,omitempty"`
	OperatorName string     `json:"operator_name,omitempty"`
	Shift        Shift      `json:"shift,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// IsEmpty reports whether no filter is set
func (f Filters) IsEmpty() bool {
	return f.MachineID == "" && f.OperatorName == "" && f.Shift == "" &&
		f.StartDate == nil && f.EndDate == nil
}

// Match reports whether the record passes every filter that is set
func (f Filters) Match(r HourlyRecord) bool {
	if f.MachineID != "" && r.MachineID != f.MachineID {
		return false
	}
	if f.OperatorName != "" && r.OperatorName != f.OperatorName {
		return false
	}
	if f.Shift != "" && r.Shift != f.Shift {
		return false
	}
	if f.StartDate != nil && r.Date.Before(truncateDay(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && r.Date.After(truncateDay(*f.EndDate)) {
		return false
	}
	return true
}

// Apply returns the matching subsequence, preserving order
func (f Filters) Apply(records []HourlyRecord) []HourlyRecord {
	if f.IsEmpty() {
		return records
	}
	matched := make([]HourlyRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
