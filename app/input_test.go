package app

import (
	"testing"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRecordInput(t *testing.T) {
	valid := RecordInput{
		Date:         "2024-03-01",
		Shift:        "night",
		Hour:         intPtr(23),
		MachineID:    "M1",
		OperatorName: "Asha",
		ProductName:  "Bracket",
		TargetOutput: 100,
		ActualOutput: 90,
	}

	rec, err := valid.Record()
	require.NoError(t, err)
	assert.Equal(t, production.ShiftNight, rec.Shift)
	assert.Equal(t, 23, rec.Hour)
	assert.Equal(t, "2024-03-01", rec.DateString())

	tests := []struct {
		name   string
		mutate func(*RecordInput)
		fields []string
	}{
		{"bad date", func(in *RecordInput) { in.Date = "03/01/2024" }, []string{"Date"}},
		{"bad shift", func(in *RecordInput) { in.Shift = "Evening" }, []string{"Shift"}},
		{"missing hour", func(in *RecordInput) { in.Hour = nil }, []string{"Hour"}},
		{"several", func(in *RecordInput) {
			in.Date = ""
			in.MachineID = ""
			in.ActualOutput = -1
		}, []string{"Date", "Machine_ID", "Actual_Output"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := in.Record()
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
			assert.Equal(t, tt.fields, errors.GetFields(err))
		})
	}
}

func TestFilterInput(t *testing.T) {
	f, err := FilterInput{MachineID: "M1", Shift: "MORNING", StartDate: "2024-03-01", EndDate: "2024-03-02"}.Filters()
	require.NoError(t, err)
	assert.Equal(t, "M1", f.MachineID)
	assert.Equal(t, production.ShiftMorning, f.Shift)
	require.NotNil(t, f.StartDate)
	require.NotNil(t, f.EndDate)

	empty, err := FilterInput{}.Filters()
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	for _, in := range []FilterInput{
		{Shift: "Evening"},
		{StartDate: "yesterday"},
		{EndDate: "2024-13-01"},
		{StartDate: "2024-03-02", EndDate: "2024-03-01"},
	} {
		_, err := in.Filters()
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err), "%+v", in)
	}
}
