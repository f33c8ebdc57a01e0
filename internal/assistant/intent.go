package assistant

import (
	"strings"
	"unicode"

	"hourlysheet/domain/production"
)

// IntentKind names one of the question shapes the interpreter answers
type IntentKind string

const (
	IntentMostDowntime     IntentKind = "most_downtime"
	IntentMostDefects      IntentKind = "most_defects"
	IntentShiftTotals      IntentKind = "shift_totals"
	IntentMachineSummary   IntentKind = "machine_summary"
	IntentOperatorSummary  IntentKind = "operator_summary"
	IntentShiftSummary     IntentKind = "shift_summary"
	IntentTodaySummary     IntentKind = "today_summary"
	IntentDataSummary      IntentKind = "data_summary"
	IntentDefectAnalysis   IntentKind = "defect_analysis"
	IntentDowntimeAnalysis IntentKind = "downtime_analysis"
	IntentUnrecognized     IntentKind = "unrecognized"
)

// Metric narrows a machine or operator answer to one measure
type Metric string

const (
	MetricAll      Metric = ""
	MetricOutput   Metric = "output"
	MetricDefects  Metric = "defects"
	MetricDowntime Metric = "downtime"
)

// Intent is a classified question together with the entities it mentions
type Intent struct {
	Kind         IntentKind       `json:"kind"`
	MachineID    string           `json:"machine_id,omitempty"`
	OperatorName string           `json:"operator_name,omitempty"`
	Shift        production.Shift `json:"shift,omitempty"`
	Metric       Metric           `json:"metric,omitempty"`
	Today        bool             `json:"today,omitempty"`
	LastShift    bool             `json:"last_shift,omitempty"`
}

type entity int

const (
	entityNone entity = iota
	entityMachine
	entityOperator
	entityShift
)

// rule matches when every keyword group has at least one token in the
// question and the required entity was found.
type rule struct {
	kind     IntentKind
	requires [][]string
	entity   entity
}

var (
	superlativeWords = []string{"most", "highest", "worst", "max", "maximum"}
	downtimeWords    = []string{"downtime", "downtimes", "stoppage", "stoppages"}
	defectWords      = []string{"defect", "defects", "rework", "reject", "rejects"}
	outputWords      = []string{"output", "production", "produce", "produced", "units"}

	// a machine token alone is not a question about that machine
	machineSummaryWords = concat([]string{"machine", "summary", "efficiency"}, downtimeWords, defectWords, outputWords)
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// rules in priority order; the first match wins
var rules = []rule{
	{kind: IntentMostDowntime, requires: [][]string{superlativeWords, downtimeWords}},
	{kind: IntentMostDefects, requires: [][]string{superlativeWords, defectWords}},
	{kind: IntentShiftTotals, requires: [][]string{{"total", "totals"}, {"shift", "shifts"}}},
	{kind: IntentMachineSummary, requires: [][]string{machineSummaryWords}, entity: entityMachine},
	{kind: IntentOperatorSummary, entity: entityOperator},
	{kind: IntentShiftSummary, entity: entityShift},
	{kind: IntentTodaySummary, requires: [][]string{{"today", "today's"}}},
	{kind: IntentDataSummary, requires: [][]string{{"summary", "overview", "stats", "statistics"}}},
	{kind: IntentDefectAnalysis, requires: [][]string{concat([]string{"quality"}, defectWords)}},
	{kind: IntentDowntimeAnalysis, requires: [][]string{downtimeWords}},
}

// tokenize lower-cases s and splits it into words. Hyphens, underscores and
// apostrophes stay inside a word so IDs like "cnc-01" survive.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '\'')
	})
}

type tokens []string

func (t tokens) hasAny(words []string) bool {
	for _, tok := range t {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// contains reports whether phrase occurs as a contiguous run of whole tokens
func (t tokens) contains(phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(t) {
		return false
	}
	for i := 0; i+len(phrase) <= len(t); i++ {
		match := true
		for j, p := range phrase {
			if t[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// findEntity returns the first candidate, in table order, mentioned in the question
func (t tokens) findEntity(candidates []string) string {
	for _, c := range candidates {
		if t.contains(tokenize(c)) {
			return c
		}
	}
	return ""
}

// Classify maps a question to an intent. Machine and operator names are
// recognised only when they occur in records.
func Classify(question string, records []production.HourlyRecord) Intent {
	toks := tokens(tokenize(question))

	machine := toks.findEntity(production.Distinct(records, production.ByMachine))
	operator := toks.findEntity(production.Distinct(records, production.ByOperator))
	var shift production.Shift
	for _, s := range production.Shifts {
		if toks.hasAny([]string{strings.ToLower(string(s))}) {
			shift = s
			break
		}
	}

	for _, r := range rules {
		if !matches(toks, r.requires) {
			continue
		}
		intent := Intent{Kind: r.kind}
		switch r.entity {
		case entityMachine:
			if machine == "" {
				continue
			}
			intent.MachineID = machine
		case entityOperator:
			if operator == "" {
				continue
			}
			intent.OperatorName = operator
		case entityShift:
			if shift == "" {
				continue
			}
			intent.Shift = shift
		}

		intent.Metric = metricOf(toks)
		intent.Today = toks.hasAny([]string{"today", "today's"})
		intent.LastShift = toks.contains([]string{"last", "shift"}) || toks.contains([]string{"previous", "shift"})
		return intent
	}

	return Intent{Kind: IntentUnrecognized}
}

func matches(toks tokens, requires [][]string) bool {
	for _, group := range requires {
		if !toks.hasAny(group) {
			return false
		}
	}
	return true
}

func metricOf(toks tokens) Metric {
	switch {
	case toks.hasAny(defectWords):
		return MetricDefects
	case toks.hasAny(downtimeWords):
		return MetricDowntime
	case toks.hasAny(outputWords):
		return MetricOutput
	default:
		return MetricAll
	}
}
