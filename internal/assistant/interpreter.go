// Package assistant answers a fixed set of plain-language questions about the
// hourly record table. Questions are classified into intents by keyword
// rules and each intent runs one aggregation over the full table.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
	"hourlysheet/internal/logging"
	"hourlysheet/ports"

	"github.com/gomarkdown/markdown"
	"go.uber.org/zap"
)

const (
	// NoDataText answers any question asked of an empty table
	NoDataText = "There is no manufacturing data available yet. Please add some hourly records first."
	// UnrecognizedText answers questions no rule matches
	UnrecognizedText = "I don't understand that query"

	unrecognizedHint = "Try asking about machine performance, operator productivity, shift totals, defects, or downtime."
)

// Answer is the interpreter's reply. Text is markdown.
type Answer struct {
	Intent Intent      `json:"intent"`
	Text   string      `json:"text"`
	Data   interface{} `json:"data,omitempty"`
}

// HTML renders the markdown text
func (a *Answer) HTML() string {
	return string(markdown.ToHTML([]byte(a.Text), nil, nil))
}

// GroupValue is one group's reduced value
type GroupValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Summary aggregates a slice of the table
type Summary struct {
	Scope      string            `json:"scope"`
	Totals     production.Totals `json:"totals"`
	Efficiency float64           `json:"efficiency"`
	DefectRate float64           `json:"defect_rate"`
	Days       int               `json:"days"`
	Machines   []string          `json:"machines,omitempty"`
	Operators  []string          `json:"operators,omitempty"`
}

// Interpreter answers questions over the records of a store
type Interpreter struct {
	store ports.RecordReaderPort
	now   func() time.Time
	log   *zap.SugaredLogger
}

// NewInterpreter creates an interpreter reading from store
func NewInterpreter(store ports.RecordReaderPort, log *zap.SugaredLogger) *Interpreter {
	return &Interpreter{store: store, now: time.Now, log: logging.OrNop(log)}
}

// WithClock replaces the clock used for "today" questions
func (i *Interpreter) WithClock(now func() time.Time) *Interpreter {
	i.now = now
	return i
}

// Ask classifies question and answers it from the current table
func (i *Interpreter) Ask(ctx context.Context, question string) (*Answer, error) {
	records, err := i.store.Query(ctx, production.Filters{})
	if err != nil {
		return nil, err
	}
	answer := Respond(question, records, i.now())
	i.log.Debugw("question answered", "intent", answer.Intent.Kind, "records", len(records))
	return answer, nil
}

// Respond answers question from records. now decides what "today" is.
func Respond(question string, records []production.HourlyRecord, now time.Time) *Answer {
	intent := Classify(question, records)
	if len(records) == 0 {
		return &Answer{Intent: intent, Text: NoDataText}
	}

	switch intent.Kind {
	case IntentMostDowntime:
		return mostOf(intent, records, "downtime", "minutes",
			func(r production.HourlyRecord) float64 { return r.DowntimeMinutes })
	case IntentMostDefects:
		return mostOf(intent, records, "defects", "defects",
			func(r production.HourlyRecord) float64 { return float64(r.DefectsRework) })
	case IntentShiftTotals:
		return shiftTotals(intent, records)
	case IntentMachineSummary:
		return machineAnswer(intent, records, now)
	case IntentOperatorSummary:
		return operatorAnswer(intent, records)
	case IntentShiftSummary:
		rows := production.Filters{Shift: intent.Shift}.Apply(records)
		summary := summarize(string(intent.Shift)+" Shift", rows)
		return &Answer{Intent: intent, Text: summaryText(summary), Data: summary}
	case IntentTodaySummary:
		rows := onDay(records, now)
		if len(rows) == 0 {
			return &Answer{Intent: intent, Text: "No data available for today."}
		}
		summary := summarize("Today", rows)
		return &Answer{Intent: intent, Text: summaryText(summary), Data: summary}
	case IntentDataSummary:
		summary := summarize("Manufacturing Data", records)
		return &Answer{Intent: intent, Text: summaryText(summary), Data: summary}
	case IntentDefectAnalysis:
		return defectAnalysis(intent, records)
	case IntentDowntimeAnalysis:
		return downtimeAnalysis(intent, records)
	default:
		return &Answer{Intent: intent, Text: UnrecognizedText + ".\n\n" + unrecognizedHint}
	}
}

// sumBy sums value per group, in first-seen order
func sumBy(records []production.HourlyRecord, key func(production.HourlyRecord) string, value func(production.HourlyRecord) float64) []GroupValue {
	groups := production.GroupBy(records, key)
	out := make([]GroupValue, len(groups))
	for i, g := range groups {
		out[i].Key = g.Key
		for _, r := range g.Records {
			out[i].Value += value(r)
		}
	}
	return out
}

// argmax returns the first group holding the largest value
func argmax(values []GroupValue) GroupValue {
	best := values[0]
	for _, v := range values[1:] {
		if v.Value > best.Value {
			best = v
		}
	}
	return best
}

func mostOf(intent Intent, records []production.HourlyRecord, noun, unit string, value func(production.HourlyRecord) float64) *Answer {
	best := argmax(sumBy(records, production.ByMachine, value))
	if best.Value == 0 {
		return &Answer{Intent: intent, Text: fmt.Sprintf("No %s recorded.", noun), Data: best}
	}
	return &Answer{
		Intent: intent,
		Text:   fmt.Sprintf("Machine **%s** had the most %s with %s %s across all recorded periods.", best.Key, noun, num(best.Value), unit),
		Data:   best,
	}
}

func shiftTotals(intent Intent, records []production.HourlyRecord) *Answer {
	totals := make([]GroupValue, len(production.Shifts))
	for i, s := range production.Shifts {
		totals[i].Key = string(s)
	}
	for _, r := range records {
		for i, s := range production.Shifts {
			if r.Shift == s {
				totals[i].Value += r.ActualOutput
			}
		}
	}

	var b strings.Builder
	b.WriteString("**Total Output by Shift**\n\n| Shift | Actual Output |\n|---|---|\n")
	for _, t := range totals {
		fmt.Fprintf(&b, "| %s | %s |\n", t.Key, num(t.Value))
	}
	return &Answer{Intent: intent, Text: b.String(), Data: totals}
}

func machineAnswer(intent Intent, records []production.HourlyRecord, now time.Time) *Answer {
	id := intent.MachineID
	rows := production.Filters{MachineID: id}.Apply(records)

	if intent.Today && intent.Metric != MetricAll {
		rows = onDay(rows, now)
		if len(rows) == 0 {
			return &Answer{Intent: intent, Text: fmt.Sprintf("No data available for Machine %s today.", id)}
		}
	}
	period := "across all recorded periods"
	if intent.Today {
		period = "today"
	}

	totals := production.Sum(rows)
	switch intent.Metric {
	case MetricDefects:
		return &Answer{Intent: intent, Data: totals,
			Text: fmt.Sprintf("Machine %s had a total of %d defects %s.", id, totals.Defects, period)}
	case MetricDowntime:
		return &Answer{Intent: intent, Data: totals,
			Text: fmt.Sprintf("Machine %s had a total downtime of %s minutes %s.", id, num(totals.Downtime), period)}
	case MetricOutput:
		return &Answer{Intent: intent, Data: totals,
			Text: fmt.Sprintf("Machine %s produced %s units out of %s planned units, with an efficiency of %s.",
				id, num(totals.Actual), num(totals.Target),
				metrics.FormatPercentage(metrics.Efficiency(totals.Actual, totals.Target), 1))}
	}

	summary := summarize("Machine "+id, rows)
	return &Answer{Intent: intent, Text: summaryText(summary), Data: summary}
}

func operatorAnswer(intent Intent, records []production.HourlyRecord) *Answer {
	name := intent.OperatorName
	rows := production.Filters{OperatorName: name}.Apply(records)

	if intent.LastShift {
		latest := rows[0].Date
		for _, r := range rows {
			if r.Date.After(latest) {
				latest = r.Date
			}
		}
		var shift production.Shift
		for _, r := range rows {
			if r.Date.Equal(latest) {
				shift = r.Shift
			}
		}
		var output float64
		for _, r := range rows {
			if r.Date.Equal(latest) && r.Shift == shift {
				output += r.ActualOutput
			}
		}
		return &Answer{
			Intent: intent,
			Text: fmt.Sprintf("Operator %s produced %s units in their last recorded shift (%s, %s).",
				name, num(output), shift, latest.Format(production.DateLayout)),
			Data: GroupValue{Key: string(shift), Value: output},
		}
	}

	if intent.Metric == MetricOutput {
		totals := production.Sum(rows)
		return &Answer{Intent: intent, Data: totals,
			Text: fmt.Sprintf("Operator %s produced a total of %s units across all recorded shifts.", name, num(totals.Actual))}
	}

	summary := summarize("Operator "+name, rows)
	return &Answer{Intent: intent, Text: summaryText(summary), Data: summary}
}

func defectAnalysis(intent Intent, records []production.HourlyRecord) *Answer {
	totals := production.Sum(records)
	if totals.Defects == 0 {
		return &Answer{Intent: intent, Text: "No defects have been recorded in the manufacturing data."}
	}

	groups := production.GroupBy(records, production.ByMachine)
	rates := make([]GroupValue, len(groups))
	for i, g := range groups {
		t := production.Sum(g.Records)
		rates[i] = GroupValue{Key: g.Key, Value: metrics.DefectRate(float64(t.Defects), t.Actual)}
	}
	worst := argmax(rates)
	worstTotals := production.Sum(production.Filters{MachineID: worst.Key}.Apply(records))
	byShift := perShift(records, func(r production.HourlyRecord) float64 { return float64(r.DefectsRework) })

	var b strings.Builder
	b.WriteString("**Defect Analysis**\n\n")
	fmt.Fprintf(&b, "- Total Defects: %d units\n", totals.Defects)
	fmt.Fprintf(&b, "- Overall Defect Rate: %s\n\n", metrics.FormatPercentage(metrics.DefectRate(float64(totals.Defects), totals.Actual), 2))
	b.WriteString("**Machine with Highest Defect Rate**\n\n")
	fmt.Fprintf(&b, "- Machine %s: %s (%d defects out of %s units)\n\n",
		worst.Key, metrics.FormatPercentage(worst.Value, 2), worstTotals.Defects, num(worstTotals.Actual))
	b.WriteString("**Defect Distribution by Shift**\n\n")
	for _, s := range byShift {
		fmt.Fprintf(&b, "- %s: %s defects\n", s.Key, num(s.Value))
	}

	return &Answer{Intent: intent, Text: b.String(), Data: map[string]interface{}{
		"total_defects": totals.Defects,
		"worst_machine": worst,
		"by_shift":      byShift,
	}}
}

func downtimeAnalysis(intent Intent, records []production.HourlyRecord) *Answer {
	totals := production.Sum(records)
	if totals.Downtime == 0 {
		return &Answer{Intent: intent, Text: "No downtime has been recorded in the manufacturing data."}
	}

	machines := top(sumBy(records, production.ByMachine,
		func(r production.HourlyRecord) float64 { return r.DowntimeMinutes }), 3)

	var withReason []production.HourlyRecord
	for _, r := range records {
		if r.ReasonForDowntime != "" {
			withReason = append(withReason, r)
		}
	}
	reasons := top(sumBy(withReason, func(r production.HourlyRecord) string { return r.ReasonForDowntime },
		func(r production.HourlyRecord) float64 { return r.DowntimeMinutes }), 3)
	byShift := perShift(records, func(r production.HourlyRecord) float64 { return r.DowntimeMinutes })

	var b strings.Builder
	b.WriteString("**Downtime Analysis**\n\n")
	fmt.Fprintf(&b, "- Total Downtime: %s minutes\n\n", num(totals.Downtime))
	b.WriteString("**Machines with Most Downtime**\n\n")
	for _, m := range machines {
		fmt.Fprintf(&b, "- %s: %s minutes\n", m.Key, num(m.Value))
	}
	b.WriteString("\n**Top Downtime Reasons**\n\n")
	if len(reasons) == 0 {
		b.WriteString("- No downtime reasons provided in the data\n")
	}
	for _, r := range reasons {
		fmt.Fprintf(&b, "- %s: %s minutes\n", r.Key, num(r.Value))
	}
	b.WriteString("\n**Downtime Distribution by Shift**\n\n")
	for _, s := range byShift {
		fmt.Fprintf(&b, "- %s: %s minutes\n", s.Key, num(s.Value))
	}

	return &Answer{Intent: intent, Text: b.String(), Data: map[string]interface{}{
		"total_downtime": totals.Downtime,
		"machines":       machines,
		"reasons":        reasons,
		"by_shift":       byShift,
	}}
}

// top returns the n largest values; equal values keep first-seen order
func top(values []GroupValue, n int) []GroupValue {
	sorted := append([]GroupValue(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func perShift(records []production.HourlyRecord, value func(production.HourlyRecord) float64) []GroupValue {
	out := make([]GroupValue, len(production.Shifts))
	for i, s := range production.Shifts {
		out[i].Key = string(s)
		for _, r := range records {
			if r.Shift == s {
				out[i].Value += value(r)
			}
		}
	}
	return out
}

func summarize(scope string, records []production.HourlyRecord) Summary {
	totals := production.Sum(records)
	days := production.Distinct(records, func(r production.HourlyRecord) string { return r.DateString() })
	return Summary{
		Scope:      scope,
		Totals:     totals,
		Efficiency: metrics.Efficiency(totals.Actual, totals.Target),
		DefectRate: metrics.DefectRate(float64(totals.Defects), totals.Actual),
		Days:       len(days),
		Machines:   production.Distinct(records, production.ByMachine),
		Operators:  production.Distinct(records, production.ByOperator),
	}
}

func summaryText(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s Summary**\n\n", s.Scope)
	fmt.Fprintf(&b, "- Records: %d\n", s.Totals.Hours)
	fmt.Fprintf(&b, "- Days: %d\n", s.Days)
	fmt.Fprintf(&b, "- Total Production: %s units\n", num(s.Totals.Actual))
	fmt.Fprintf(&b, "- Production Efficiency: %s\n", metrics.FormatPercentage(s.Efficiency, 1))
	fmt.Fprintf(&b, "- Total Defects: %d units (Defect Rate: %s)\n", s.Totals.Defects, metrics.FormatPercentage(s.DefectRate, 2))
	fmt.Fprintf(&b, "- Total Downtime: %s\n", minutes(s.Totals.Downtime))
	fmt.Fprintf(&b, "- Machines: %s\n", strings.Join(s.Machines, ", "))
	fmt.Fprintf(&b, "- Operators: %s\n", strings.Join(s.Operators, ", "))
	return b.String()
}

func onDay(records []production.HourlyRecord, now time.Time) []production.HourlyRecord {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return production.Filters{StartDate: &today, EndDate: &today}.Apply(records)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// minutes renders a downtime total, with the h/m form for whole minutes
func minutes(v float64) string {
	if v == float64(int(v)) {
		if d, err := metrics.FormatDuration(int(v)); err == nil {
			return fmt.Sprintf("%s minutes (%s)", num(v), d)
		}
	}
	return num(v) + " minutes"
}
