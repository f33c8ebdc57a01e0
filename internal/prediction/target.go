package prediction

import (
	"math"

	"hourlysheet/domain/production"

	"github.com/montanaflynn/stats"
)

// minTargetRecords is the history needed before a target is suggested
const minTargetRecords = 3

// TargetSuggestion is a proposed hourly output target for one machine
type TargetSuggestion struct {
	MachineID      string   `json:"machine_id"`
	OptimalTarget  *float64 `json:"optimal_target"`
	Confidence     int      `json:"confidence"`
	MeanEfficiency float64  `json:"mean_efficiency"`
	Message        string   `json:"message"`
}

// SuggestTarget proposes a target from the machine's mean hourly
// efficiency: raise it when targets are met, hold when close, lower it
// otherwise. Short histories get a message instead of a number.
func SuggestTarget(records []production.HourlyRecord, machineID string) TargetSuggestion {
	history := production.Filters{MachineID: machineID}.Apply(records)
	suggestion := TargetSuggestion{MachineID: machineID}

	var ratios, outputs []float64
	for _, r := range history {
		outputs = append(outputs, r.ActualOutput)
		if r.TargetOutput > 0 {
			ratios = append(ratios, r.ActualOutput/r.TargetOutput)
		}
	}
	if len(history) < minTargetRecords || len(ratios) == 0 {
		suggestion.Message = "Insufficient data for prediction"
		return suggestion
	}

	meanEfficiency, _ := stats.Mean(ratios)
	meanOutput, _ := stats.Mean(outputs)
	maxOutput, _ := stats.Max(outputs)
	suggestion.MeanEfficiency = meanEfficiency

	var target float64
	switch {
	case meanEfficiency >= 0.95:
		target = math.Max(math.Floor(maxOutput*1.05), math.Floor(meanOutput*1.1))
		suggestion.Confidence = 80
		suggestion.Message = "Machine consistently meets targets, can increase production target."
	case meanEfficiency >= 0.8:
		target = math.Floor(meanOutput / meanEfficiency)
		suggestion.Confidence = 70
		suggestion.Message = "Machine performs well, maintain current targets."
	default:
		target = math.Floor(meanOutput * 1.1)
		suggestion.Confidence = 60
		suggestion.Message = "Machine struggles to meet targets, consider adjustment."
	}
	suggestion.OptimalTarget = &target
	return suggestion
}
