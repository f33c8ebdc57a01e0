package config

import (
	"os"
	"path/filepath"
	"testing"

	"hourlysheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "manufacturing_data.csv", cfg.Data.DataFile)
	assert.Equal(t, "attached_assets", cfg.Data.ImportDir)
	assert.Equal(t, "sqlite3", cfg.Ledger.Driver)
	assert.Equal(t, DefaultAnalyticsConfig(), cfg.Analytics)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATA_FILE", "/tmp/plant.csv")
	t.Setenv("ANOMALY_Z_THRESHOLD", "3.5")
	t.Setenv("SHIFT_MORNING_START", "7")
	t.Setenv("LEDGER_ENABLED", "false")
	t.Setenv("LEDGER_DRIVER", "oracle")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/plant.csv", cfg.Data.DataFile)
	assert.Equal(t, 3.5, cfg.Analytics.AnomalyZThreshold)
	assert.Equal(t, 7, cfg.Analytics.Shifts.MorningStart)
	assert.False(t, cfg.Ledger.Enabled)
}

func TestAnalyticsYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shifts:
  morning_start: 5
  afternoon_start: 13
  night_start: 21
anomaly_z_threshold: 2.5
`), 0o644))
	t.Setenv("ANALYTICS_CONFIG", path)
	t.Setenv("MIN_ANALYTIC_RECORDS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Analytics.Shifts.MorningStart)
	assert.Equal(t, 21, cfg.Analytics.Shifts.NightStart)
	assert.Equal(t, 2.5, cfg.Analytics.AnomalyZThreshold)
	assert.Equal(t, 8, cfg.Analytics.MinRecords)
	assert.Equal(t, 15.0, cfg.Analytics.DowntimeLabelMinutes, "unset keys keep defaults")
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown ledger driver", map[string]string{"LEDGER_DRIVER": "oracle"}},
		{"non-positive threshold", map[string]string{"ANOMALY_Z_THRESHOLD": "0"}},
		{"shift order", map[string]string{"SHIFT_AFTERNOON_START": "4"}},
		{"too few records", map[string]string{"MIN_ANALYTIC_RECORDS": "1"}},
		{"zero downtime label", map[string]string{"DOWNTIME_LABEL_MINUTES": "0"}},
		{"zero defect label", map[string]string{"DEFECT_LABEL_RATE": "0"}},
		{"negative defect label", map[string]string{"DEFECT_LABEL_RATE": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestBadYAML(t *testing.T) {
	var a = DefaultAnalyticsConfig()
	err := ApplyYAML(&a, []byte("shifts: [1, 2"))
	assert.True(t, errors.Is(err, errors.CodeConfigInvalid))
}
