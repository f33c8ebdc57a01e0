// Package testkit generates realistic hourly sheets for demos and tests.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
)

// SheetGeneratorConfig configures the hourly sheet generator
type SheetGeneratorConfig struct {
	Machines       []string              `json:"machines"`
	Operators      []string              `json:"operators"` // one per shift, reused in order
	Products       []string              `json:"products"`
	StartDate      time.Time             `json:"start_date"`
	Days           int                   `json:"days"`
	StartHour      int                   `json:"start_hour"`
	Hours          int                   `json:"hours"` // consecutive hours logged per day
	BaseTarget     float64               `json:"base_target"`
	DowntimeRate   float64               `json:"downtime_rate"` // chance an hour loses time
	TroubleMachine string                `json:"trouble_machine"`
	Shifts         metrics.ShiftSchedule `json:"shifts"`
	Seed           int64                 `json:"seed"`
}

// DefaultSheetConfig returns a week of two-shift production on four machines
func DefaultSheetConfig() SheetGeneratorConfig {
	return SheetGeneratorConfig{
		Machines:       []string{"M1", "M2", "M3", "M4"},
		Operators:      []string{"Asha", "Ben", "Chen"},
		Products:       []string{"Bracket", "Hinge", "Flange"},
		StartDate:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Days:           7,
		StartHour:      6,
		Hours:          16,
		BaseTarget:     100,
		DowntimeRate:   0.08,
		TroubleMachine: "M3",
		Shifts:         metrics.DefaultShiftSchedule(),
		Seed:           42,
	}
}

var downtimeReasons = []string{
	"Machine breakdown",
	"Tool change",
	"Calibration drift",
	"Material shortage",
	"Operator break",
	"PLC fault",
	"Setup changeover",
}

// SheetGenerator produces deterministic hourly records for a seed
type SheetGenerator struct {
	config SheetGeneratorConfig
	rng    *rand.Rand
}

// NewSheetGenerator creates a generator. Empty config fields take defaults.
func NewSheetGenerator(config SheetGeneratorConfig) *SheetGenerator {
	def := DefaultSheetConfig()
	if len(config.Machines) == 0 {
		config.Machines = def.Machines
	}
	if len(config.Operators) == 0 {
		config.Operators = def.Operators
	}
	if len(config.Products) == 0 {
		config.Products = def.Products
	}
	if config.StartDate.IsZero() {
		config.StartDate = def.StartDate
	}
	if config.Days <= 0 {
		config.Days = def.Days
	}
	if config.Hours <= 0 || config.Hours > 24 {
		config.Hours = def.Hours
	}
	if config.BaseTarget <= 0 {
		config.BaseTarget = def.BaseTarget
	}
	if config.Shifts == (metrics.ShiftSchedule{}) {
		config.Shifts = def.Shifts
	}
	return &SheetGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns Days x Hours x Machines records in date, hour, machine order
func (g *SheetGenerator) Generate() []production.HourlyRecord {
	cfg := g.config
	records := make([]production.HourlyRecord, 0, cfg.Days*cfg.Hours*len(cfg.Machines))

	for d := 0; d < cfg.Days; d++ {
		date := cfg.StartDate.AddDate(0, 0, d)
		cumulative := make([]float64, len(cfg.Machines))

		for h := 0; h < cfg.Hours; h++ {
			hour := (cfg.StartHour + h) % 24
			shift := cfg.Shifts.ShiftForHour(hour)

			for m, machine := range cfg.Machines {
				rec := g.hour(date, hour, shift, m, machine)
				cumulative[m] += rec.ActualOutput
				rec.CumulativeOutput = cumulative[m]
				records = append(records, rec)
			}
		}
	}

	return records
}

func (g *SheetGenerator) hour(date time.Time, hour int, shift production.Shift, m int, machine string) production.HourlyRecord {
	cfg := g.config
	target := cfg.BaseTarget + float64(m*10)

	rate := cfg.DowntimeRate
	if machine == cfg.TroubleMachine {
		rate *= 3
	}

	var downtime float64
	var reason string
	if g.rng.Float64() < rate {
		downtime = float64(5 + g.rng.Intn(40))
		reason = downtimeReasons[g.rng.Intn(len(downtimeReasons))]
	}

	// Output scales with the minutes actually run, with a little jitter
	running := (60 - downtime) / 60
	actual := math.Round(target * running * (0.9 + g.rng.Float64()*0.15))
	if actual < 0 {
		actual = 0
	}

	defects := int(math.Round(math.Abs(g.rng.NormFloat64()) * actual * 0.015))

	remarks := ""
	if downtime >= 30 {
		remarks = fmt.Sprintf("Lost %s to %s", duration(downtime), reason)
	}

	return production.HourlyRecord{
		Date:              date,
		Shift:             shift,
		Hour:              hour,
		MachineID:         machine,
		OperatorName:      cfg.Operators[shiftIndex(shift)%len(cfg.Operators)],
		ProductName:       cfg.Products[(m+date.YearDay())%len(cfg.Products)],
		TargetOutput:      target,
		ActualOutput:      actual,
		DefectsRework:     defects,
		DowntimeMinutes:   downtime,
		ReasonForDowntime: reason,
		OperatorRemarks:   remarks,
	}
}

func shiftIndex(s production.Shift) int {
	switch s {
	case production.ShiftMorning:
		return 0
	case production.ShiftAfternoon:
		return 1
	default:
		return 2
	}
}

func duration(minutes float64) string {
	s, err := metrics.FormatDuration(int(minutes))
	if err != nil {
		return fmt.Sprintf("%.0f minutes", minutes)
	}
	return s
}
