package prediction

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hours(machine string, downtimes ...float64) []production.HourlyRecord {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]production.HourlyRecord, len(downtimes))
	for i, d := range downtimes {
		out[i] = production.HourlyRecord{
			Date:            base,
			Shift:           production.ShiftMorning,
			Hour:            6 + i%8,
			MachineID:       machine,
			OperatorName:    "Asha",
			ProductName:     "Bracket",
			TargetOutput:    100,
			ActualOutput:    100 - d,
			DowntimeMinutes: d,
		}
	}
	return out
}

func newEstimator(t *testing.T) *Estimator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ModelFile = filepath.Join(t.TempDir(), "models", "downtime_model.json")
	return NewEstimator(cfg, nil)
}

func mixedHistory() []production.HourlyRecord {
	records := hours("M1", 30, 25, 40, 0, 35, 20, 45, 30)
	records = append(records, hours("M2", 0, 0, 5, 0, 0, 0, 0, 0)...)
	return records
}

func TestMachineFeatures(t *testing.T) {
	history := hours("M1", 0, 10, 0, 0, 0, 20)
	history[1].DefectsRework = 9

	f := MachineFeatures(history)
	require.Len(t, f, len(FeatureNames))

	named := f.Named()
	assert.InDelta(t, 5.0, named["avg_downtime"], 1e-12)
	assert.Equal(t, 20.0, named["max_downtime"])
	assert.InDelta(t, 2.0/6, named["downtime_frequency"], 1e-12)
	assert.InDelta(t, 570.0/600, named["production_efficiency"], 1e-12)
	assert.InDelta(t, 9.0/570, named["defect_rate"], 1e-12)
	assert.Equal(t, 6.0, named["operation_hours"])
	assert.Equal(t, 1.0, named["has_recent_downtime"])

	quiet := hours("M2", 30, 0, 0, 0, 0, 0)
	assert.Equal(t, 0.0, MachineFeatures(quiet).Named()["has_recent_downtime"], "downtime older than the last five hours")

	noTarget := hours("M3", 0)
	noTarget[0].TargetOutput = 0
	assert.Equal(t, 1.0, MachineFeatures(noTarget).Named()["production_efficiency"])
}

func TestLabeler(t *testing.T) {
	l := Labeler{DowntimeMinutes: 15, DefectRate: 10}
	r := hours("M1", 15)[0]
	assert.Equal(t, 1.0, l.Label(r))

	r = hours("M1", 14)[0]
	assert.Equal(t, 0.0, l.Label(r))

	r.DefectsRework = 9 // 9 of 86
	assert.Equal(t, 1.0, l.Label(r))
}

func TestTrainingSetUsesExpandingHistory(t *testing.T) {
	records := hours("M1", 0, 30)
	records = append(records, hours("M2", 0)...)

	x, y := TrainingSet(records, Labeler{DowntimeMinutes: 15, DefectRate: 10})
	require.Len(t, x, 3)
	assert.Equal(t, []float64{0, 1, 0}, y)
	assert.Equal(t, 1.0, x[0][5], "first sample sees one hour")
	assert.Equal(t, 2.0, x[1][5])
	assert.Equal(t, 15.0, x[1][0])
}

func TestFitRequiresMinimumRecords(t *testing.T) {
	est := newEstimator(t)

	_, err := est.Fit(context.Background(), hours("M1", 0, 10, 20, 30))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientData, errors.GetCode(err))
	assert.Equal(t, StateUntrained, est.Status().State)
}

func TestPredictUnknownMachine(t *testing.T) {
	est := newEstimator(t)

	_, err := est.Predict(context.Background(), mixedHistory(), "M9")
	assert.Equal(t, errors.CodeUnknownMachine, errors.GetCode(err))

	_, err = est.Predict(context.Background(), nil, "M1")
	assert.Equal(t, errors.CodeUnknownMachine, errors.GetCode(err))
}

func TestPredictFitsWhenNoModelSaved(t *testing.T) {
	est := newEstimator(t)
	records := mixedHistory()

	risky, err := est.Predict(context.Background(), records, "M1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, risky.Probability, 0.0)
	assert.LessOrEqual(t, risky.Probability, 1.0)
	assert.NotEmpty(t, risky.ModelID)
	assert.Equal(t, 4, risky.HorizonHours)
	assert.Len(t, risky.Features, len(FeatureNames))

	status := est.Status()
	assert.Equal(t, StateTrained, status.State)
	assert.Equal(t, risky.ModelID, status.ModelID)
	assert.Equal(t, len(records), status.Samples)

	calm, err := est.Predict(context.Background(), records, "M2")
	require.NoError(t, err)
	assert.Equal(t, risky.ModelID, calm.ModelID, "second prediction reuses the saved model")
	assert.Greater(t, risky.Probability, calm.Probability)
}

func TestReloadedModelReproducesProbability(t *testing.T) {
	ctx := context.Background()
	est := newEstimator(t)
	records := mixedHistory()

	model, err := est.Fit(ctx, records)
	require.NoError(t, err)
	want := model.Probability(MachineFeatures(production.Filters{MachineID: "M1"}.Apply(records)))

	reloaded, err := LoadModel(est.config.ModelFile)
	require.NoError(t, err)
	assert.Equal(t, model.Weights, reloaded.Weights)
	assert.Equal(t, model.Scales, reloaded.Scales)

	pred, err := est.Predict(ctx, records, "M1")
	require.NoError(t, err)
	assert.Equal(t, want, pred.Probability)
	assert.Equal(t, model.ID, pred.ModelID)
}

func TestCorruptModelIsRefitted(t *testing.T) {
	est := newEstimator(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(est.config.ModelFile), 0o755))
	require.NoError(t, os.WriteFile(est.config.ModelFile, []byte("{not json"), 0o644))
	assert.Equal(t, StateUntrained, est.Status().State)

	pred, err := est.Predict(context.Background(), mixedHistory(), "M2")
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred.Probability))
	assert.Equal(t, StateTrained, est.Status().State)
}

func TestFitSingleClass(t *testing.T) {
	est := newEstimator(t)
	records := hours("M1", 0, 0, 0, 0, 0, 0)

	model, err := est.Fit(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 0, model.Positives)

	p := model.Probability(MachineFeatures(records))
	assert.Less(t, p, 0.5)
}

func TestRiskLevelAndHorizon(t *testing.T) {
	assert.Equal(t, RiskLow, RiskLevelFor(0.29))
	assert.Equal(t, RiskModerate, RiskLevelFor(0.3))
	assert.Equal(t, RiskModerate, RiskLevelFor(0.7))
	assert.Equal(t, RiskHigh, RiskLevelFor(0.71))

	assert.Equal(t, 4, HorizonHours(10))
	assert.Equal(t, 12, HorizonHours(11))
	assert.Equal(t, 12, HorizonHours(20))
	assert.Equal(t, 24, HorizonHours(21))
}

func TestSuggestTarget(t *testing.T) {
	tests := []struct {
		name       string
		actual     float64
		confidence int
		target     float64
	}{
		{"meets target", 100, 80, 110},
		{"close to target", 90, 70, 100},
		{"struggling", 50, 60, 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := hours("M1", 0, 0, 0)
			for i := range records {
				records[i].ActualOutput = tt.actual
			}

			s := SuggestTarget(records, "M1")
			require.NotNil(t, s.OptimalTarget)
			assert.Equal(t, tt.confidence, s.Confidence)
			assert.InDelta(t, tt.target, *s.OptimalTarget, 1)
			assert.NotEmpty(t, s.Message)
		})
	}

	short := SuggestTarget(hours("M1", 0, 0), "M1")
	assert.Nil(t, short.OptimalTarget)
	assert.Equal(t, "Insufficient data for prediction", short.Message)
}
