package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"hourlysheet/domain/activity"
	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
	"hourlysheet/internal/anomaly"
	"hourlysheet/internal/assistant"
	"hourlysheet/internal/errors"
	"hourlysheet/internal/logging"
	"hourlysheet/internal/prediction"
	"hourlysheet/ports"

	"go.uber.org/zap"
)

// ExportFormat selects the export encoding
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts csv or xlsx, case-insensitively. Empty means csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unsupported export format %q", s))
	}
}

// recentDowntimeLimit is how many downtime events a report carries
const recentDowntimeLimit = 5

// Report is the dashboard summary of a filtered table
type Report struct {
	Stats          production.Stats           `json:"stats"`
	RecentDowntime []production.DowntimeEvent `json:"recent_downtime"`
	Model          prediction.Status          `json:"model"`
}

// HourlySheetService runs every user action against the record store and
// writes an audit entry for the ones that change or analyse data
type HourlySheetService struct {
	store       ports.RecordStorePort
	ledger      ports.LedgerPort // nil when the ledger is disabled
	estimator   *prediction.Estimator
	detector    *anomaly.Detector
	interpreter *assistant.Interpreter
	publishers  []ports.ActivityPublisherPort
	log         *zap.SugaredLogger
}

// NewHourlySheetService creates the service. ledger may be nil.
func NewHourlySheetService(
	store ports.RecordStorePort,
	ledger ports.LedgerPort,
	estimator *prediction.Estimator,
	detector *anomaly.Detector,
	interpreter *assistant.Interpreter,
	log *zap.SugaredLogger,
) *HourlySheetService {
	return &HourlySheetService{
		store:       store,
		ledger:      ledger,
		estimator:   estimator,
		detector:    detector,
		interpreter: interpreter,
		log:         logging.OrNop(log),
	}
}

// WithPublisher adds p to the receivers of every audit entry
func (s *HourlySheetService) WithPublisher(p ports.ActivityPublisherPort) *HourlySheetService {
	s.publishers = append(s.publishers, p)
	return s
}

// AddRecord validates and appends one hourly record
func (s *HourlySheetService) AddRecord(ctx context.Context, record production.HourlyRecord) (production.HourlyRecord, error) {
	stored, err := s.store.Append(ctx, record)
	if err != nil {
		return stored, err
	}
	s.audit(ctx, activity.ActionAppend, stored.MachineID,
		fmt.Sprintf("%s %02d:00 %s", stored.DateString(), stored.Hour, stored.Shift), 1)
	return stored, nil
}

// Import appends the valid rows of an hourly sheet file
func (s *HourlySheetService) Import(ctx context.Context, path string) (*production.ImportResult, error) {
	result, err := s.store.Import(ctx, path)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, activity.ActionImport, result.Source,
		fmt.Sprintf("batch %s: %d imported, %d skipped", result.BatchID, result.Imported, result.Skipped), result.Imported)
	return result, nil
}

// Seed appends generated records in one batch
func (s *HourlySheetService) Seed(ctx context.Context, records []production.HourlyRecord) (int, error) {
	n, err := s.store.AppendBatch(ctx, records)
	if err != nil {
		return 0, err
	}
	s.audit(ctx, activity.ActionSeed, "", fmt.Sprintf("%d generated records", n), n)
	return n, nil
}

// Records returns the records matching filters
func (s *HourlySheetService) Records(ctx context.Context, filters production.Filters) ([]production.HourlyRecord, error) {
	return s.store.Query(ctx, filters)
}

// Export writes the matching records to w
func (s *HourlySheetService) Export(ctx context.Context, w io.Writer, format ExportFormat, filters production.Filters) (int, error) {
	var n int
	var err error
	switch format {
	case FormatXLSX:
		n, err = s.store.ExportXLSX(ctx, w, filters)
	default:
		n, err = s.store.ExportCSV(ctx, w, filters)
	}
	if err != nil {
		return 0, err
	}
	s.audit(ctx, activity.ActionExport, string(format), "", n)
	return n, nil
}

// Report summarises the matching records
func (s *HourlySheetService) Report(ctx context.Context, filters production.Filters) (*Report, error) {
	records, err := s.store.Query(ctx, filters)
	if err != nil {
		return nil, err
	}
	return &Report{
		Stats:          metrics.Summarize(records),
		RecentDowntime: metrics.RecentDowntime(records, recentDowntimeLimit),
		Model:          s.estimator.Status(),
	}, nil
}

// Ask answers a plain-language question about the table
func (s *HourlySheetService) Ask(ctx context.Context, question string) (*assistant.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.InvalidInput("question cannot be empty")
	}
	answer, err := s.interpreter.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, activity.ActionAsk, string(answer.Intent.Kind), question, 0)
	return answer, nil
}

// FitModel trains the downtime model on the whole table
func (s *HourlySheetService) FitModel(ctx context.Context) (*prediction.Model, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	model, err := s.estimator.Fit(ctx, records)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, activity.ActionFit, model.ID,
		fmt.Sprintf("%d samples, %d positive", model.Samples, model.Positives), len(records))
	return model, nil
}

// ModelStatus reports the saved model
func (s *HourlySheetService) ModelStatus() prediction.Status {
	return s.estimator.Status()
}

// PredictDowntime scores one machine's downtime risk
func (s *HourlySheetService) PredictDowntime(ctx context.Context, machineID string) (*prediction.Prediction, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.estimator.Predict(ctx, records, machineID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, activity.ActionPredict, machineID,
		fmt.Sprintf("probability %.3f (%s)", p.Probability, p.RiskLevel), p.Records)
	return p, nil
}

// SuggestTarget proposes an hourly target for a machine
func (s *HourlySheetService) SuggestTarget(ctx context.Context, machineID string) (*prediction.TargetSuggestion, error) {
	records, err := s.store.Query(ctx, production.Filters{MachineID: machineID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.UnknownMachine(machineID)
	}
	suggestion := prediction.SuggestTarget(records, machineID)
	return &suggestion, nil
}

// Anomalies scans the whole table for unusual hours
func (s *HourlySheetService) Anomalies(ctx context.Context) ([]anomaly.Flag, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	startTime := time.Now()
	flags, err := s.detector.Detect(records)
	if err != nil {
		return nil, err
	}
	s.log.Debugw("anomaly scan", "records", len(records), "flags", len(flags), "elapsed", time.Since(startTime))
	s.audit(ctx, activity.ActionAnomaly, "", fmt.Sprintf("%d flags", len(flags)), len(records))
	return flags, nil
}

// AnalyzeIssue categorises a downtime reason for a machine and suggests fixes
func (s *HourlySheetService) AnalyzeIssue(ctx context.Context, machineID, reason string) (*assistant.IssueAnalysis, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errors.InvalidInput("reason cannot be empty")
	}
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	analysis, err := assistant.AnalyzeIssue(records, machineID, reason)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, activity.ActionIssue, machineID, fmt.Sprintf("%s: %s", analysis.Category, reason), 0)
	return analysis, nil
}

// History lists audit entries, newest first. It is empty when the ledger is
// disabled.
func (s *HourlySheetService) History(ctx context.Context, filter ports.LedgerFilter) ([]activity.Entry, error) {
	if s.ledger == nil {
		return []activity.Entry{}, nil
	}
	return s.ledger.List(ctx, filter)
}

// audit records an action and publishes it. Ledger failures are logged,
// never returned: the user's action has already succeeded.
func (s *HourlySheetService) audit(ctx context.Context, action activity.Action, subject, detail string, count int) {
	entry := activity.Entry{
		Action:      action,
		Subject:     subject,
		Detail:      detail,
		RecordCount: count,
	}

	if s.ledger != nil {
		stored, err := s.ledger.Record(ctx, entry)
		if err != nil {
			s.log.Warnw("failed to record activity", "action", action, "error", err)
		} else {
			entry = stored
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	for _, p := range s.publishers {
		p.Publish(entry)
	}
}
