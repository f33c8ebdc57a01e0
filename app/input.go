package app

import (
	"fmt"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
)

// RecordInput is an hourly record as typed by a user. Dates and shifts are
// strings and the hour is optional so that every problem can be reported
// at once.
type RecordInput struct {
	Date              string  `json:"date"`
	Shift             string  `json:"shift"`
	Hour              *int    `json:"hour"`
	MachineID         string  `json:"machine_id"`
	OperatorName      string  `json:"operator_name"`
	ProductName       string  `json:"product_name"`
	TargetOutput      float64 `json:"target_output"`
	ActualOutput      float64 `json:"actual_output"`
	CumulativeOutput  float64 `json:"cumulative_output"`
	DefectsRework     int     `json:"defects_rework"`
	DowntimeMinutes   float64 `json:"downtime_minutes"`
	ReasonForDowntime string  `json:"reason_for_downtime"`
	OperatorRemarks   string  `json:"operator_remarks"`
}

// Record converts the input, returning a VALIDATION_ERROR naming every bad
// column
func (in RecordInput) Record() (production.HourlyRecord, error) {
	rec := production.HourlyRecord{
		MachineID:         in.MachineID,
		OperatorName:      in.OperatorName,
		ProductName:       in.ProductName,
		TargetOutput:      in.TargetOutput,
		ActualOutput:      in.ActualOutput,
		CumulativeOutput:  in.CumulativeOutput,
		DefectsRework:     in.DefectsRework,
		DowntimeMinutes:   in.DowntimeMinutes,
		ReasonForDowntime: in.ReasonForDowntime,
		OperatorRemarks:   in.OperatorRemarks,
	}

	bad := make(map[string]bool)
	if d, err := production.ParseDate(in.Date); err == nil {
		rec.Date = d
	} else {
		bad[production.ColDate] = true
	}
	if in.Shift != "" {
		if s, ok := production.ParseShift(in.Shift); ok {
			rec.Shift = s
		} else {
			bad[production.ColShift] = true
		}
	}
	if in.Hour != nil {
		rec.Hour = *in.Hour
	} else {
		bad[production.ColHour] = true
	}
	for _, col := range rec.Validate() {
		bad[col] = true
	}

	if len(bad) > 0 {
		var fields []string
		for _, col := range production.Columns {
			if bad[col] {
				fields = append(fields, col)
			}
		}
		return rec, errors.InvalidFields(fields)
	}
	return rec, nil
}

// FilterInput is a query filter as typed by a user
type FilterInput struct {
	MachineID    string `form:"machine_id" json:"machine_id"`
	OperatorName string `form:"operator" json:"operator"`
	Shift        string `form:"shift" json:"shift"`
	StartDate    string `form:"start_date" json:"start_date"`
	EndDate      string `form:"end_date" json:"end_date"`
}

// Filters converts the input. Unknown shifts and malformed dates are
// INVALID_INPUT.
func (in FilterInput) Filters() (production.Filters, error) {
	f := production.Filters{
		MachineID:    in.MachineID,
		OperatorName: in.OperatorName,
	}

	if in.Shift != "" {
		s, ok := production.ParseShift(in.Shift)
		if !ok {
			return f, errors.InvalidInput(fmt.Sprintf("unknown shift %q", in.Shift))
		}
		f.Shift = s
	}
	if in.StartDate != "" {
		d, err := production.ParseDate(in.StartDate)
		if err != nil {
			return f, errors.InvalidInput(fmt.Sprintf("invalid start date %q, expected YYYY-MM-DD", in.StartDate))
		}
		f.StartDate = &d
	}
	if in.EndDate != "" {
		d, err := production.ParseDate(in.EndDate)
		if err != nil {
			return f, errors.InvalidInput(fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", in.EndDate))
		}
		f.EndDate = &d
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, errors.InvalidInput("end date is before start date")
	}
	return f, nil
}
