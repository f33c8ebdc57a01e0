// Package prediction scores machines for elevated downtime risk with a
// logistic regression over per-machine history features, and suggests
// hourly output targets from past efficiency.
package prediction

import (
	"context"
	"os"
	"time"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
	"hourlysheet/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the estimator lifecycle state
type State string

const (
	StateUntrained State = "untrained"
	StateTrained   State = "trained"
)

// RiskLevel buckets a probability
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// RiskLevelFor maps a probability to its bucket
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p < 0.3:
		return RiskLow
	case p > 0.7:
		return RiskHigh
	default:
		return RiskModerate
	}
}

// HorizonHours is how far ahead a prediction is meant to hold. More history
// supports a longer horizon.
func HorizonHours(records int) int {
	switch {
	case records > 20:
		return 24
	case records > 10:
		return 12
	default:
		return 4
	}
}

// Config tunes fitting and labelling
type Config struct {
	ModelFile            string
	MinRecords           int
	DowntimeLabelMinutes float64
	DefectLabelRate      float64
	Lambda               float64
}

// DefaultConfig returns the estimator defaults
func DefaultConfig() Config {
	return Config{
		ModelFile:            "downtime_model.json",
		MinRecords:           5,
		DowntimeLabelMinutes: 15,
		DefectLabelRate:      10,
		Lambda:               0.1,
	}
}

// Prediction is the risk score of one machine
type Prediction struct {
	MachineID    string             `json:"machine_id"`
	Probability  float64            `json:"probability"`
	RiskLevel    RiskLevel          `json:"risk_level"`
	HorizonHours int                `json:"horizon_hours"`
	Records      int                `json:"records"`
	Features     map[string]float64 `json:"features"`
	ModelID      string             `json:"model_id"`
}

// Status describes the persisted model, if any
type Status struct {
	State     State      `json:"state"`
	ModelID   string     `json:"model_id,omitempty"`
	Samples   int        `json:"samples,omitempty"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
}

// Estimator fits and applies the downtime model. It holds no model in
// memory; the model file is the only state.
type Estimator struct {
	config Config
	now    func() time.Time
	log    *zap.SugaredLogger
}

// NewEstimator creates an estimator. Zero config fields take defaults.
func NewEstimator(config Config, log *zap.SugaredLogger) *Estimator {
	def := DefaultConfig()
	if config.ModelFile == "" {
		config.ModelFile = def.ModelFile
	}
	if config.MinRecords == 0 {
		config.MinRecords = def.MinRecords
	}
	if config.DowntimeLabelMinutes == 0 {
		config.DowntimeLabelMinutes = def.DowntimeLabelMinutes
	}
	if config.DefectLabelRate == 0 {
		config.DefectLabelRate = def.DefectLabelRate
	}
	if config.Lambda == 0 {
		config.Lambda = def.Lambda
	}
	return &Estimator{config: config, now: time.Now, log: logging.OrNop(log)}
}

// Status reports whether a usable model has been saved
func (e *Estimator) Status() Status {
	m, err := LoadModel(e.config.ModelFile)
	if err != nil {
		return Status{State: StateUntrained}
	}
	trainedAt := m.TrainedAt
	return Status{State: StateTrained, ModelID: m.ID, Samples: m.Samples, TrainedAt: &trainedAt}
}

// Fit trains a new model on records and saves it, replacing any previous one
func (e *Estimator) Fit(ctx context.Context, records []production.HourlyRecord) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) < e.config.MinRecords {
		return nil, errors.InsufficientData(e.config.MinRecords, len(records))
	}

	labeler := Labeler{DowntimeMinutes: e.config.DowntimeLabelMinutes, DefectRate: e.config.DefectLabelRate}
	x, y := TrainingSet(records, labeler)

	means, scales := standardize(x)
	scaled := make([][]float64, len(x))
	for i, row := range x {
		scaled[i] = scale(row, means, scales)
	}

	startTime := time.Now()
	weights, bias, err := fitLogistic(scaled, y, e.config.Lambda)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInternalError, err)
	}

	positives := 0
	for _, label := range y {
		if label == 1 {
			positives++
		}
	}

	model := &Model{
		ID:           uuid.New().String(),
		FeatureNames: append([]string(nil), FeatureNames...),
		Weights:      weights,
		Bias:         bias,
		Means:        means,
		Scales:       scales,
		Lambda:       e.config.Lambda,
		Samples:      len(x),
		Positives:    positives,
		TrainedAt:    e.now().UTC(),
	}

	if err := SaveModel(e.config.ModelFile, model); err != nil {
		return nil, errors.Wrap(err, "failed to save downtime model")
	}

	e.log.Infow("downtime model fitted",
		"model_id", model.ID, "samples", model.Samples, "positives", positives,
		"elapsed", time.Since(startTime))
	return model, nil
}

// Predict scores machineID from its current history. The saved model is
// used when present and readable; otherwise a model is fitted first.
func (e *Estimator) Predict(ctx context.Context, records []production.HourlyRecord, machineID string) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := production.Filters{MachineID: machineID}.Apply(records)
	if len(history) == 0 {
		return nil, errors.UnknownMachine(machineID)
	}

	model, err := LoadModel(e.config.ModelFile)
	if err != nil {
		if !os.IsNotExist(err) {
			e.log.Warnw("saved model unusable, refitting", "path", e.config.ModelFile, "error", err)
		}
		model, err = e.Fit(ctx, records)
		if err != nil {
			return nil, err
		}
	}

	features := MachineFeatures(history)
	p := model.Probability(features)

	return &Prediction{
		MachineID:    machineID,
		Probability:  p,
		RiskLevel:    RiskLevelFor(p),
		HorizonHours: HorizonHours(len(history)),
		Records:      len(history),
		Features:     features.Named(),
		ModelID:      model.ID,
	}, nil
}
