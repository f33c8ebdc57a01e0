package config

import (
	"os"
	"strconv"
	"strings"

	"hourlysheet/domain/metrics"
	"hourlysheet/internal/errors"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Data      DataConfig
	Server    ServerConfig
	Ledger    LedgerConfig
	Logging   LoggingConfig
	Analytics AnalyticsConfig
}

// DataConfig holds file system paths of the record store and its companions
type DataConfig struct {
	DataFile   string // backing CSV of the record store
	ImportFile string // default hourly sheet to import
	ImportDir  string // fallback folder searched by import
	ModelFile  string // serialized downtime model
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	MetricsEnabled bool // serve /metrics
}

// LedgerConfig selects the activity ledger database
type LedgerConfig struct {
	Enabled bool
	Driver  string // sqlite3 or postgres
	DSN     string
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	AppEnv string
	Level  string
}

// AnalyticsConfig holds the tunable constants of the analytic routines.
// It can be overlaid from a YAML file named by ANALYTICS_CONFIG.
type AnalyticsConfig struct {
	Shifts               metrics.ShiftSchedule `yaml:"shifts"`
	AnomalyZThreshold    float64               `yaml:"anomaly_z_threshold"`
	MinRecords           int                   `yaml:"min_records"`
	DowntimeLabelMinutes float64               `yaml:"downtime_label_minutes"`
	DefectLabelRate      float64               `yaml:"defect_label_rate"`
}

// DefaultAnalyticsConfig returns the documented defaults
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		Shifts:               metrics.DefaultShiftSchedule(),
		AnomalyZThreshold:    2.0,
		MinRecords:           5,
		DowntimeLabelMinutes: 15,
		DefectLabelRate:      10,
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:    *loadDataConfig(),
		Server:  *loadServerConfig(),
		Ledger:  *loadLedgerConfig(),
		Logging: *loadLoggingConfig(),
	}

	analytics, err := loadAnalyticsConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analytics configuration")
	}
	config.Analytics = *analytics

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		DataFile:   getEnvOrDefault("DATA_FILE", "manufacturing_data.csv"),
		ImportFile: getEnvOrDefault("IMPORT_FILE", "hourly_sheet.csv"),
		ImportDir:  getEnvOrDefault("IMPORT_DIR", "attached_assets"),
		ModelFile:  getEnvOrDefault("MODEL_FILE", "downtime_model.json"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		MetricsEnabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

func loadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		Enabled: getEnvBoolOrDefault("LEDGER_ENABLED", true),
		Driver:  getEnvOrDefault("LEDGER_DRIVER", "sqlite3"),
		DSN:     getEnvOrDefault("LEDGER_DSN", "hourlysheet.db"),
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		AppEnv: getEnvOrDefault("APP_ENV", "development"),
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

func loadAnalyticsConfig() (*AnalyticsConfig, error) {
	analytics := DefaultAnalyticsConfig()

	if path := os.Getenv("ANALYTICS_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read analytics config %s", path)
		}
		if err := ApplyYAML(&analytics, raw); err != nil {
			return nil, err
		}
	}

	// Environment wins over the file
	analytics.Shifts.MorningStart = getEnvIntOrDefault("SHIFT_MORNING_START", analytics.Shifts.MorningStart)
	analytics.Shifts.AfternoonStart = getEnvIntOrDefault("SHIFT_AFTERNOON_START", analytics.Shifts.AfternoonStart)
	analytics.Shifts.NightStart = getEnvIntOrDefault("SHIFT_NIGHT_START", analytics.Shifts.NightStart)
	analytics.AnomalyZThreshold = getEnvFloatOrDefault("ANOMALY_Z_THRESHOLD", analytics.AnomalyZThreshold)
	analytics.MinRecords = getEnvIntOrDefault("MIN_ANALYTIC_RECORDS", analytics.MinRecords)
	analytics.DowntimeLabelMinutes = getEnvFloatOrDefault("DOWNTIME_LABEL_MINUTES", analytics.DowntimeLabelMinutes)
	analytics.DefectLabelRate = getEnvFloatOrDefault("DEFECT_LABEL_RATE", analytics.DefectLabelRate)

	return &analytics, nil
}

// ApplyYAML overlays the fields present in raw onto analytics
func ApplyYAML(analytics *AnalyticsConfig, raw []byte) error {
	if err := yaml.Unmarshal(raw, analytics); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "invalid analytics YAML"))
	}
	return nil
}

func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Data.DataFile) == "" {
		return errors.ConfigInvalid("DATA_FILE is required")
	}
	if strings.TrimSpace(config.Data.ModelFile) == "" {
		return errors.ConfigInvalid("MODEL_FILE is required")
	}
	if config.Ledger.Enabled {
		switch config.Ledger.Driver {
		case "sqlite3", "postgres":
		default:
			return errors.ConfigInvalid("LEDGER_DRIVER must be sqlite3 or postgres")
		}
		if config.Ledger.DSN == "" {
			return errors.ConfigInvalid("LEDGER_DSN is required when the ledger is enabled")
		}
	}
	return ValidateAnalytics(config.Analytics)
}

// ValidateAnalytics checks the analytic constants
func ValidateAnalytics(a AnalyticsConfig) error {
	if err := a.Shifts.Validate(); err != nil {
		return err
	}
	if a.AnomalyZThreshold <= 0 {
		return errors.ConfigInvalid("anomaly z threshold must be positive")
	}
	if a.MinRecords < 2 {
		return errors.ConfigInvalid("minimum analytic records must be at least 2")
	}
	if a.DowntimeLabelMinutes <= 0 || a.DefectLabelRate <= 0 {
		return errors.ConfigInvalid("label thresholds must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
