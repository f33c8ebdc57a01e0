package production

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func validRecord() HourlyRecord {
	return HourlyRecord{
		Date:         day("2024-03-01"),
		Shift:        ShiftMorning,
		Hour:         8,
		MachineID:    "M1",
		OperatorName: "Ana",
		ProductName:  "Bracket",
		TargetOutput: 100,
		ActualOutput: 95,
	}
}

func TestParseShift(t *testing.T) {
	tests := []struct {
		in   string
		want Shift
		ok   bool
	}{
		{"Morning", ShiftMorning, true},
		{" afternoon ", ShiftAfternoon, true},
		{"NIGHT", ShiftNight, true},
		{"Evening", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseShift(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.False(t, Shift("morning").Valid())
}

func TestValidate(t *testing.T) {
	assert.Empty(t, validRecord().Validate())

	r := validRecord()
	r.MachineID = " "
	r.ActualOutput = -1
	r.DefectsRework = -2
	r.Hour = 24
	r.Shift = "Evening"

	assert.Equal(t, []string{ColShift, ColHour, ColMachineID, ColActualOutput, ColDefectsRework}, r.Validate())
}

func TestFiltersApply(t *testing.T) {
	a := validRecord()
	b := validRecord()
	b.MachineID = "M2"
	b.Date = day("2024-03-03")
	b.Shift = ShiftNight
	c := validRecord()
	c.OperatorName = "Ben"
	c.Date = day("2024-03-05")

	records := []HourlyRecord{a, b, c}

	assert.Equal(t, records, Filters{}.Apply(records))
	assert.Equal(t, []HourlyRecord{b}, Filters{MachineID: "M2"}.Apply(records))
	assert.Equal(t, []HourlyRecord{c}, Filters{OperatorName: "Ben"}.Apply(records))
	assert.Equal(t, []HourlyRecord{b}, Filters{Shift: ShiftNight}.Apply(records))

	start, end := day("2024-03-02"), day("2024-03-05")
	assert.Equal(t, []HourlyRecord{b, c}, Filters{StartDate: &start, EndDate: &end}.Apply(records))
	assert.Empty(t, Filters{MachineID: "m2"}.Apply(records), "machine filter is exact")
}

func TestGroupByKeepsFirstSeenOrder(t *testing.T) {
	mk := func(m string) HourlyRecord { r := validRecord(); r.MachineID = m; return r }
	records := []HourlyRecord{mk("M2"), mk("M1"), mk("M2"), mk("M3")}

	groups := GroupBy(records, ByMachine)
	require.Len(t, groups, 3)
	assert.Equal(t, "M2", groups[0].Key)
	assert.Equal(t, []int{0, 2}, groups[0].Indexes)
	assert.Equal(t, "M1", groups[1].Key)
	assert.Equal(t, "M3", groups[2].Key)
	assert.Equal(t, []string{"M2", "M1", "M3"}, Distinct(records, ByMachine))
}

func TestSum(t *testing.T) {
	a := validRecord()
	a.DefectsRework = 3
	a.DowntimeMinutes = 10
	b := validRecord()
	b.DefectsRework = 1

	got := Sum([]HourlyRecord{a, b})
	assert.Equal(t, Totals{Hours: 2, Target: 200, Actual: 190, Defects: 4, Downtime: 10}, got)
}
