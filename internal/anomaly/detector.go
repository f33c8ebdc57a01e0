// Package anomaly flags hourly records whose output, downtime or rework
// stands out from the rest of the same machine and product.
package anomaly

import (
	"fmt"
	"math"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
	"hourlysheet/internal/logging"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// Field names the checked record columns
type Field string

const (
	FieldActualOutput    Field = "actual_output"
	FieldDowntimeMinutes Field = "downtime_minutes"
	FieldDefectsRework   Field = "defects_rework"
)

// Fields lists the checked columns in report order
var Fields = []Field{FieldActualOutput, FieldDowntimeMinutes, FieldDefectsRework}

func (f Field) value(r production.HourlyRecord) float64 {
	switch f {
	case FieldActualOutput:
		return r.ActualOutput
	case FieldDowntimeMinutes:
		return r.DowntimeMinutes
	default:
		return float64(r.DefectsRework)
	}
}

func (f Field) label() string {
	switch f {
	case FieldActualOutput:
		return "Actual output"
	case FieldDowntimeMinutes:
		return "Downtime"
	default:
		return "Defects/rework"
	}
}

// Config tunes the detector
type Config struct {
	Threshold  float64
	MinRecords int
}

// DefaultConfig flags beyond two standard deviations with at least five records
func DefaultConfig() Config {
	return Config{Threshold: 2, MinRecords: 5}
}

// Flag is one anomalous value
type Flag struct {
	Record     production.HourlyRecord `json:"record"`
	Index      int                     `json:"index"`
	Field      Field                   `json:"field"`
	Value      float64                 `json:"value"`
	Mean       float64                 `json:"mean"`
	StdDev     float64                 `json:"std_dev"`
	ZScore     float64                 `json:"z_score"`
	Confidence float64                 `json:"confidence"`
	Reason     string                  `json:"reason"`
}

// Detector compares each record against the other records of its machine
// and product
type Detector struct {
	config Config
	log    *zap.SugaredLogger
}

// NewDetector creates a detector. Zero config fields take defaults.
func NewDetector(config Config, log *zap.SugaredLogger) *Detector {
	def := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.MinRecords == 0 {
		config.MinRecords = def.MinRecords
	}
	return &Detector{config: config, log: logging.OrNop(log)}
}

// Detect returns flags in table order, fields in Fields order within a record
func (d *Detector) Detect(records []production.HourlyRecord) ([]Flag, error) {
	if len(records) < d.config.MinRecords {
		return nil, errors.InsufficientData(d.config.MinRecords, len(records))
	}

	byIndex := make(map[int][]Flag)
	skipped := 0
	for _, group := range production.GroupBy(records, production.ByMachineProduct) {
		if len(group.Records) < 2 {
			skipped++
			continue
		}
		for _, field := range Fields {
			values := make([]float64, len(group.Records))
			for i, r := range group.Records {
				values[i] = field.value(r)
			}
			for i, v := range values {
				mean, std, ok := baseline(values, i)
				if !ok {
					continue
				}
				z := (v - mean) / std
				if math.Abs(z) <= d.config.Threshold {
					continue
				}
				idx := group.Indexes[i]
				byIndex[idx] = append(byIndex[idx], Flag{
					Record:     group.Records[i],
					Index:      idx,
					Field:      field,
					Value:      v,
					Mean:       mean,
					StdDev:     std,
					ZScore:     z,
					Confidence: confidence(z),
					Reason:     reason(group.Records[i], field, v, mean, z),
				})
			}
		}
	}

	flags := make([]Flag, 0)
	for i := range records {
		flags = append(flags, byIndex[i]...)
	}

	d.log.Debugw("anomaly scan complete",
		"records", len(records), "flags", len(flags), "skipped_groups", skipped)
	return flags, nil
}

// baseline is the mean and deviation of values without values[skip]. When
// the others do not vary, the deviation of the whole group is used instead.
func baseline(values []float64, skip int) (mean, std float64, ok bool) {
	others := make([]float64, 0, len(values)-1)
	for i, v := range values {
		if i != skip {
			others = append(others, v)
		}
	}

	mean, err := stats.Mean(others)
	if err != nil {
		return 0, 0, false
	}
	if len(others) >= 2 {
		std, err = stats.StandardDeviationSample(others)
		if err != nil || math.IsNaN(std) {
			std = 0
		}
	}
	if std == 0 {
		std, err = stats.StandardDeviationPopulation(values)
		if err != nil || math.IsNaN(std) {
			std = 0
		}
	}
	return mean, std, std > 0
}

// confidence is one minus the two-sided normal p-value of z
func confidence(z float64) float64 {
	return 2*distuv.UnitNormal.CDF(math.Abs(z)) - 1
}

func reason(r production.HourlyRecord, field Field, value, mean float64, z float64) string {
	direction := "above"
	if z < 0 {
		direction = "below"
	}
	return fmt.Sprintf("%s of %s on %s at %02d:00 is %.1f standard deviations %s the usual %s for %s / %s",
		field.label(), trim(value), r.DateString(), r.Hour,
		math.Abs(z), direction, trim(mean), r.MachineID, r.ProductName)
}

func trim(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
