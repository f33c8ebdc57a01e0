package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	records []production.HourlyRecord
}

func (m *memoryStore) Load(ctx context.Context) ([]production.HourlyRecord, error) {
	return m.records, nil
}

func (m *memoryStore) Query(ctx context.Context, f production.Filters) ([]production.HourlyRecord, error) {
	return f.Apply(m.records), nil
}

func day(s string) time.Time {
	d, err := production.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixture() []production.HourlyRecord {
	return []production.HourlyRecord{
		{Date: day("2024-03-01"), Shift: production.ShiftMorning, Hour: 8, MachineID: "M1", OperatorName: "Asha", ProductName: "Bracket",
			TargetOutput: 100, ActualOutput: 100, DefectsRework: 2, DowntimeMinutes: 10, ReasonForDowntime: "Tool wear"},
		{Date: day("2024-03-01"), Shift: production.ShiftAfternoon, Hour: 15, MachineID: "M2", OperatorName: "Ben", ProductName: "Hinge",
			TargetOutput: 100, ActualOutput: 80, DefectsRework: 1, DowntimeMinutes: 30, ReasonForDowntime: "Material shortage"},
		{Date: day("2024-03-02"), Shift: production.ShiftNight, Hour: 23, MachineID: "M1", OperatorName: "Asha", ProductName: "Bracket",
			TargetOutput: 100, ActualOutput: 90, DefectsRework: 5, DowntimeMinutes: 20, ReasonForDowntime: "Tool change"},
		{Date: day("2024-03-02"), Shift: production.ShiftMorning, Hour: 9, MachineID: "M3", OperatorName: "Ben", ProductName: "Hinge",
			TargetOutput: 100, ActualOutput: 50},
	}
}

func TestClassify(t *testing.T) {
	records := fixture()

	tests := []struct {
		question string
		want     Intent
	}{
		{"Which machine had the most downtime?", Intent{Kind: IntentMostDowntime, Metric: MetricDowntime}},
		{"Which machine has the MOST defects", Intent{Kind: IntentMostDefects, Metric: MetricDefects}},
		{"total output per shift", Intent{Kind: IntentShiftTotals, Metric: MetricOutput}},
		{"summary for M1", Intent{Kind: IntentMachineSummary, MachineID: "M1"}},
		{"how many defects on machine m2 today", Intent{Kind: IntentMachineSummary, MachineID: "M2", Metric: MetricDefects, Today: true}},
		{"What did Asha produce in her last shift?", Intent{Kind: IntentOperatorSummary, OperatorName: "Asha", Metric: MetricOutput, LastShift: true}},
		{"how was the night shift", Intent{Kind: IntentShiftSummary, Shift: production.ShiftNight}},
		{"what happened today", Intent{Kind: IntentTodaySummary, Today: true}},
		{"give me an overview", Intent{Kind: IntentDataSummary}},
		{"M10 summary", Intent{Kind: IntentDataSummary}},
		{"hello m1", Intent{Kind: IntentUnrecognized}},
		{"m1 efficiency", Intent{Kind: IntentMachineSummary, MachineID: "M1"}},
		{"any quality issues?", Intent{Kind: IntentDefectAnalysis}},
		{"downtime report", Intent{Kind: IntentDowntimeAnalysis, Metric: MetricDowntime}},
		{"what is the weather like", Intent{Kind: IntentUnrecognized}},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.question, records))
		})
	}
}

func TestRespondEmptyTable(t *testing.T) {
	answer := Respond("which machine had the most downtime", nil, time.Now())
	assert.Equal(t, NoDataText, answer.Text)
	assert.Equal(t, IntentMostDowntime, answer.Intent.Kind)
}

func TestRespondUnrecognized(t *testing.T) {
	answer := Respond("sing me a song", fixture(), time.Now())
	assert.True(t, strings.HasPrefix(answer.Text, UnrecognizedText))
	assert.Nil(t, answer.Data)
}

func TestMostDowntimeTieGoesToFirstMachine(t *testing.T) {
	// M1 and M2 both total 30 minutes; M1 appears first
	answer := Respond("most downtime", fixture(), time.Now())
	assert.Equal(t, GroupValue{Key: "M1", Value: 30}, answer.Data)
	assert.Contains(t, answer.Text, "M1")
	assert.Contains(t, answer.Text, "30 minutes")
}

func TestMostDefects(t *testing.T) {
	answer := Respond("who has the most defects", fixture(), time.Now())
	assert.Equal(t, GroupValue{Key: "M1", Value: 7}, answer.Data)
}

func TestShiftTotals(t *testing.T) {
	answer := Respond("total output by shift", fixture(), time.Now())
	assert.Equal(t, []GroupValue{
		{Key: "Morning", Value: 150},
		{Key: "Afternoon", Value: 80},
		{Key: "Night", Value: 90},
	}, answer.Data)
	assert.Contains(t, answer.Text, "| Morning | 150 |")
}

func TestMachineSummary(t *testing.T) {
	answer := Respond("summary for machine M1", fixture(), time.Now())
	summary, ok := answer.Data.(Summary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Totals.Hours)
	assert.Equal(t, 190.0, summary.Totals.Actual)
	assert.Equal(t, 95.0, summary.Efficiency)
	assert.Equal(t, []string{"Asha"}, summary.Operators)

	downtime := Respond("M1 downtime", fixture(), time.Now())
	assert.Equal(t, "Machine M1 had a total downtime of 30 minutes across all recorded periods.", downtime.Text)

	output := Respond("M2 output", fixture(), time.Now())
	assert.Equal(t, "Machine M2 produced 80 units out of 100 planned units, with an efficiency of 80.0%.", output.Text)
}

func TestMachineDefectsToday(t *testing.T) {
	now := day("2024-03-02").Add(10 * time.Hour)

	answer := Respond("defects for M1 today", fixture(), now)
	assert.Equal(t, "Machine M1 had a total of 5 defects today.", answer.Text)

	none := Respond("defects for M2 today", fixture(), now)
	assert.Equal(t, "No data available for Machine M2 today.", none.Text)
}

func TestOperatorLastShift(t *testing.T) {
	answer := Respond("how much did Asha produce last shift", fixture(), time.Now())
	assert.Equal(t, GroupValue{Key: "Night", Value: 90}, answer.Data)
	assert.Contains(t, answer.Text, "Night")
}

func TestTodaySummary(t *testing.T) {
	store := &memoryStore{records: fixture()}
	interp := NewInterpreter(store, nil).WithClock(func() time.Time {
		return time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	})

	answer, err := interp.Ask(context.Background(), "how are we doing today")
	require.NoError(t, err)
	summary := answer.Data.(Summary)
	assert.Equal(t, 2, summary.Totals.Hours)
	assert.Equal(t, []string{"M1", "M3"}, summary.Machines)

	interp.WithClock(func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) })
	answer, err = interp.Ask(context.Background(), "today")
	require.NoError(t, err)
	assert.Equal(t, "No data available for today.", answer.Text)
}

func TestDefectAndDowntimeAnalysis(t *testing.T) {
	defects := Respond("quality report", fixture(), time.Now())
	assert.Contains(t, defects.Text, "Machine M1: 3.68%")
	assert.Contains(t, defects.Text, "- Night: 5 defects")

	downtime := Respond("downtime breakdown", fixture(), time.Now())
	data := downtime.Data.(map[string]interface{})
	assert.Equal(t, []GroupValue{{Key: "M1", Value: 30}, {Key: "M2", Value: 30}, {Key: "M3", Value: 0}}, data["machines"])
	assert.Equal(t, GroupValue{Key: "Material shortage", Value: 30}, data["reasons"].([]GroupValue)[0])
}

func TestAnswerHTML(t *testing.T) {
	answer := Respond("overview", fixture(), time.Now())
	html := answer.HTML()
	assert.Contains(t, html, "<strong>Manufacturing Data Summary</strong>")
	assert.Contains(t, html, "<li>")
}

func TestAnalyzeIssue(t *testing.T) {
	analysis, err := AnalyzeIssue(fixture(), "M1", "Tool")
	require.NoError(t, err)
	assert.Equal(t, CategoryTooling, analysis.Category)
	assert.Len(t, analysis.Suggestions, 3)
	assert.Equal(t, []ReasonCount{{"Tool wear", 1}, {"Tool change", 1}}, analysis.Similar)
	assert.Equal(t, 95.0, analysis.Efficiency)
	assert.Equal(t, 30.0, analysis.TotalDowntime)
	assert.Contains(t, analysis.Text, "Tool wear")

	_, err = AnalyzeIssue(fixture(), "M9", "jam")
	assert.Equal(t, errors.CodeUnknownMachine, errors.GetCode(err))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		reason string
		want   IssueCategory
	}{
		{"Spindle breakdown", CategoryMaintenance},
		{"Worn insert", CategoryTooling},
		{"Out of tolerance", CategoryCalibration},
		{"Raw stock late", CategoryMaterial},
		{"Setup delay", CategoryOperator},
		{"PLC fault", CategoryControl},
		{"", CategoryGeneral},
		{"Lunch", CategoryGeneral},
	}
	for _, tt := range tests {
		got, suggestions := Categorize(tt.reason)
		assert.Equal(t, tt.want, got, tt.reason)
		assert.Len(t, suggestions, 3)
	}
}
