package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsInvalidInputBeforeOpeningStore(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantFields []string
	}{
		{
			name:       "missing hour",
			args:       []string{"--date", "2024-03-01", "--machine", "M1", "--operator", "Asha", "--product", "Bracket"},
			wantFields: []string{production.ColHour},
		},
		{
			name:       "bad date and machine",
			args:       []string{"--date", "01/03/2024", "--hour", "9", "--operator", "Asha", "--product", "Bracket"},
			wantFields: []string{production.ColDate, production.ColMachineID},
		},
		{
			name:       "negative downtime",
			args:       []string{"--hour", "9", "--machine", "M1", "--operator", "Asha", "--product", "Bracket", "--downtime", "-5"},
			wantFields: []string{production.ColDowntimeMinutes},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newAddCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
			assert.Equal(t, tt.wantFields, errors.GetFields(err))
		})
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	cmd := newExportCmd()
	cmd.SetArgs([]string{"--format", "pdf"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, []production.HourlyRecord{{
		Date:              time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Shift:             production.ShiftMorning,
		Hour:              7,
		MachineID:         "M1",
		OperatorName:      "Asha",
		ProductName:       "Bracket",
		TargetOutput:      100,
		ActualOutput:      95,
		DowntimeMinutes:   5,
		ReasonForDowntime: "Jam",
	}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "2024-03-01")
	assert.Contains(t, lines[1], "95.0%")
	assert.Contains(t, lines[1], "Jam")
	assert.Equal(t, "1 records", lines[3])
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "1h 30m", duration(90))
	assert.Equal(t, "45m", duration(45))
}
