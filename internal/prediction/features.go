package prediction

import (
	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
)

// recentWindow is how many trailing records count as "recent"
const recentWindow = 5

// FeatureNames lists the model inputs in vector order
var FeatureNames = []string{
	"avg_downtime",
	"max_downtime",
	"downtime_frequency",
	"production_efficiency",
	"defect_rate",
	"operation_hours",
	"has_recent_downtime",
}

// Features is one machine's feature vector, in FeatureNames order
type Features []float64

// Named returns the vector keyed by feature name
func (f Features) Named() map[string]float64 {
	out := make(map[string]float64, len(f))
	for i, v := range f {
		out[FeatureNames[i]] = v
	}
	return out
}

// MachineFeatures summarises a machine's history, oldest record first.
// history must not be empty.
func MachineFeatures(history []production.HourlyRecord) Features {
	totals := production.Sum(history)
	n := float64(len(history))

	var maxDowntime, withDowntime float64
	for _, r := range history {
		if r.DowntimeMinutes > maxDowntime {
			maxDowntime = r.DowntimeMinutes
		}
		if r.DowntimeMinutes > 0 {
			withDowntime++
		}
	}

	efficiency := 1.0
	if totals.Target > 0 {
		efficiency = totals.Actual / totals.Target
	}

	recent := 0.0
	start := len(history) - recentWindow
	if start < 0 {
		start = 0
	}
	for _, r := range history[start:] {
		if r.DowntimeMinutes > 0 {
			recent = 1
			break
		}
	}

	return Features{
		totals.Downtime / n,
		maxDowntime,
		withDowntime / n,
		efficiency,
		metrics.DefectRate(float64(totals.Defects), totals.Actual) / 100,
		n,
		recent,
	}
}

// Labeler decides whether a record counts as an elevated-risk hour
type Labeler struct {
	DowntimeMinutes float64 // at or above is risky
	DefectRate      float64 // percent, at or above is risky
}

// Label returns 1 for a risky record and 0 otherwise
func (l Labeler) Label(r production.HourlyRecord) float64 {
	if r.DowntimeMinutes >= l.DowntimeMinutes {
		return 1
	}
	if r.ActualOutput > 0 && metrics.DefectRate(float64(r.DefectsRework), r.ActualOutput) >= l.DefectRate {
		return 1
	}
	return 0
}

// TrainingSet builds one sample per record. Each sample's features cover
// its machine's history up to and including that record.
func TrainingSet(records []production.HourlyRecord, labeler Labeler) (x [][]float64, y []float64) {
	for _, g := range production.GroupBy(records, production.ByMachine) {
		for k := range g.Records {
			x = append(x, MachineFeatures(g.Records[:k+1]))
			y = append(y, labeler.Label(g.Records[k]))
		}
	}
	return x, y
}
