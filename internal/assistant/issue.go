package assistant

import (
	"fmt"
	"sort"
	"strings"

	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
)

// IssueCategory classifies a downtime reason
type IssueCategory string

const (
	CategoryMaintenance IssueCategory = "maintenance"
	CategoryTooling     IssueCategory = "tooling"
	CategoryCalibration IssueCategory = "calibration"
	CategoryMaterial    IssueCategory = "material"
	CategoryOperator    IssueCategory = "operator"
	CategoryControl     IssueCategory = "control_system"
	CategoryGeneral     IssueCategory = "general"
)

type issueRule struct {
	category    IssueCategory
	keywords    []string
	suggestions []string
}

// checked in order; keywords match as substrings of the reason
var issueRules = []issueRule{
	{CategoryMaintenance, []string{"maintenance", "breakdown", "failure", "malfunction"}, []string{
		"Schedule immediate preventive maintenance to check mechanical components, electrical systems, and control units.",
		"Review maintenance logs to identify recurring patterns and address root causes.",
		"Consider condition-based monitoring to detect early signs of failure.",
	}},
	{CategoryTooling, []string{"tool", "part", "component", "worn", "broken"}, []string{
		"Replace the affected tools or parts with new or reconditioned components.",
		"Check alignment and calibration of all related components.",
		"Review the tool replacement schedule and adjust it to observed wear.",
	}},
	{CategoryCalibration, []string{"calibration", "alignment", "quality", "tolerance"}, []string{
		"Perform full machine calibration according to manufacturer specifications.",
		"Check and adjust alignment of critical components.",
		"Run more frequent quality checks during production.",
	}},
	{CategoryMaterial, []string{"material", "raw", "input", "feed"}, []string{
		"Inspect material quality and confirm it meets specifications.",
		"Check the material feeding mechanism for obstructions or wear.",
		"Adjust machine settings to accommodate material variation.",
	}},
	{CategoryOperator, []string{"operator", "human", "setup", "configuration"}, []string{
		"Provide additional training on machine setup and operation.",
		"Review and clarify the standard operating procedures.",
		"Introduce a checklist for machine setup and changeover.",
	}},
	{CategoryControl, []string{"software", "control", "program", "plc", "system"}, []string{
		"Update the machine control software or firmware.",
		"Verify sensor functions and replace malfunctioning sensors.",
		"Back up and restore control programs after validating their integrity.",
	}},
}

var generalSuggestions = []string{
	"Perform a general inspection of the machine and its components.",
	"Review operating conditions and parameters for abnormalities.",
	"Consult the manufacturer documentation for troubleshooting guidance.",
}

// ReasonCount is a historical downtime reason and how often it occurred
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// IssueAnalysis is the troubleshooting report for one machine and reason
type IssueAnalysis struct {
	MachineID     string        `json:"machine_id"`
	Reason        string        `json:"reason"`
	Category      IssueCategory `json:"category"`
	Suggestions   []string      `json:"suggestions"`
	Similar       []ReasonCount `json:"similar,omitempty"`
	Efficiency    float64       `json:"efficiency"`
	TotalDowntime float64       `json:"total_downtime"`
	Text          string        `json:"text"`
}

// Categorize returns the category and suggestions for a downtime reason
func Categorize(reason string) (IssueCategory, []string) {
	lower := strings.ToLower(reason)
	for _, r := range issueRules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return r.category, r.suggestions
			}
		}
	}
	return CategoryGeneral, generalSuggestions
}

// AnalyzeIssue suggests actions for a machine's downtime reason and relates
// it to the reasons recorded for that machine before.
func AnalyzeIssue(records []production.HourlyRecord, machineID, reason string) (*IssueAnalysis, error) {
	rows := production.Filters{MachineID: machineID}.Apply(records)
	if len(rows) == 0 {
		return nil, errors.UnknownMachine(machineID)
	}

	reason = strings.TrimSpace(reason)
	category, suggestions := Categorize(reason)
	totals := production.Sum(rows)

	analysis := &IssueAnalysis{
		MachineID:     machineID,
		Reason:        reason,
		Category:      category,
		Suggestions:   suggestions,
		Similar:       similarReasons(rows, reason),
		Efficiency:    metrics.Efficiency(totals.Actual, totals.Target),
		TotalDowntime: totals.Downtime,
	}
	analysis.Text = issueText(analysis)
	return analysis, nil
}

// similarReasons counts the machine's past reasons that contain, or are
// contained in, reason. Most frequent first.
func similarReasons(rows []production.HourlyRecord, reason string) []ReasonCount {
	if reason == "" {
		return nil
	}
	current := strings.ToLower(reason)

	var counts []ReasonCount
	index := make(map[string]int)
	for _, r := range rows {
		past := r.ReasonForDowntime
		if past == "" {
			continue
		}
		lower := strings.ToLower(past)
		if !strings.Contains(lower, current) && !strings.Contains(current, lower) {
			continue
		}
		if i, ok := index[past]; ok {
			counts[i].Count++
			continue
		}
		index[past] = len(counts)
		counts = append(counts, ReasonCount{Reason: past, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

func issueText(a *IssueAnalysis) string {
	var b strings.Builder
	title := a.Reason
	if title == "" {
		title = "unspecified issue"
	}
	fmt.Fprintf(&b, "**Analysis for Machine %s: %s**\n\n", a.MachineID, title)
	b.WriteString("Suggested actions:\n\n")
	for i, s := range a.Suggestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	if len(a.Similar) > 0 {
		fmt.Fprintf(&b, "\nThis issue resembles %d previously recorded reason(s) for machine %s. ", len(a.Similar), a.MachineID)
		fmt.Fprintf(&b, "The most common was '%s', recorded %d time(s).\n", a.Similar[0].Reason, a.Similar[0].Count)
	}
	if a.TotalDowntime == 0 {
		fmt.Fprintf(&b, "\nNo downtime has been recorded for machine %s yet.\n", a.MachineID)
	}

	fmt.Fprintf(&b, "\n- Machine Efficiency: %s\n", metrics.FormatPercentage(a.Efficiency, 1))
	fmt.Fprintf(&b, "- Total Downtime: %s\n", minutes(a.TotalDowntime))
	return b.String()
}
