package container

import (
	"context"
	"fmt"

	"hourlysheet/adapters/csvstore"
	"hourlysheet/adapters/ledger"
	"hourlysheet/app"
	"hourlysheet/internal/anomaly"
	"hourlysheet/internal/assistant"
	"hourlysheet/internal/config"
	"hourlysheet/internal/logging"
	"hourlysheet/internal/monitoring"
	"hourlysheet/internal/prediction"
	"hourlysheet/ports"

	"go.uber.org/zap"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Log    *zap.SugaredLogger

	// Infrastructure
	Store   *csvstore.Store
	Ledger  *ledger.Ledger       // nil when disabled
	Metrics *monitoring.Registry // nil when disabled

	// Analytics
	Estimator   *prediction.Estimator
	Detector    *anomaly.Detector
	Interpreter *assistant.Interpreter

	Service *app.HourlySheetService
}

// New builds every component from cfg. The ledger database is opened and
// migrated when enabled.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	log = logging.OrNop(log)

	c := &Container{
		Config: cfg,
		Log:    log,
	}

	c.initStore()
	c.initAnalytics()

	if cfg.Ledger.Enabled {
		if err := c.initLedger(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger: %w", err)
		}
	}

	if cfg.Server.MetricsEnabled {
		c.Metrics = monitoring.NewRegistry()
	}

	c.initService()

	log.Infow("container initialized",
		"data_file", cfg.Data.DataFile, "model_file", cfg.Data.ModelFile,
		"ledger", cfg.Ledger.Enabled)
	return c, nil
}

func (c *Container) initStore() {
	c.Store = csvstore.New(csvstore.Config{
		DataFile:  c.Config.Data.DataFile,
		ImportDir: c.Config.Data.ImportDir,
		Shifts:    c.Config.Analytics.Shifts,
	}, c.Log.Named("store"))
}

func (c *Container) initAnalytics() {
	a := c.Config.Analytics

	c.Estimator = prediction.NewEstimator(prediction.Config{
		ModelFile:            c.Config.Data.ModelFile,
		MinRecords:           a.MinRecords,
		DowntimeLabelMinutes: a.DowntimeLabelMinutes,
		DefectLabelRate:      a.DefectLabelRate,
	}, c.Log.Named("prediction"))

	c.Detector = anomaly.NewDetector(anomaly.Config{
		Threshold:  a.AnomalyZThreshold,
		MinRecords: a.MinRecords,
	}, c.Log.Named("anomaly"))

	c.Interpreter = assistant.NewInterpreter(c.Store, c.Log.Named("assistant"))
}

func (c *Container) initLedger(ctx context.Context) error {
	l, err := ledger.Open(ctx, c.Config.Ledger.Driver, c.Config.Ledger.DSN, c.Log.Named("ledger"))
	if err != nil {
		return err
	}
	c.Ledger = l
	return nil
}

func (c *Container) initService() {
	// a nil *ledger.Ledger must stay a nil interface
	var l ports.LedgerPort
	if c.Ledger != nil {
		l = c.Ledger
	}
	c.Service = app.NewHourlySheetService(c.Store, l, c.Estimator, c.Detector, c.Interpreter, c.Log.Named("service"))
	if c.Metrics != nil {
		c.Service.WithPublisher(c.Metrics)
	}
}

// Shutdown releases the ledger database
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Ledger != nil {
		return c.Ledger.Close()
	}
	return nil
}
