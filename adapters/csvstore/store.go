// Package csvstore persists hourly records in a single CSV file. The file is
// the system of record: every read reloads it and every write is flushed
// before returning. One writer at a time is assumed.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hourlysheet/adapters/excel"
	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
	"hourlysheet/internal/errors"
	"hourlysheet/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the locations the store reads and writes
type Config struct {
	DataFile  string
	ImportDir string
	Shifts    metrics.ShiftSchedule
}

// DefaultConfig returns the store defaults
func DefaultConfig() Config {
	return Config{
		DataFile:  "manufacturing_data.csv",
		ImportDir: "attached_assets",
		Shifts:    metrics.DefaultShiftSchedule(),
	}
}

// Store is the CSV-backed record store
type Store struct {
	config Config
	log    *zap.SugaredLogger
}

// New creates a store. A nil logger disables logging.
func New(config Config, log *zap.SugaredLogger) *Store {
	if config.DataFile == "" {
		config.DataFile = DefaultConfig().DataFile
	}
	if config.Shifts == (metrics.ShiftSchedule{}) {
		config.Shifts = metrics.DefaultShiftSchedule()
	}
	return &Store{config: config, log: logging.OrNop(log)}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.config.DataFile
}

// Load reads every record in file order. A missing file is an empty table.
func (s *Store) Load(ctx context.Context) ([]production.HourlyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.config.DataFile)
	if os.IsNotExist(err) {
		return []production.HourlyRecord{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", s.config.DataFile)
	}
	defer file.Close()

	rows, err := excel.ReadCSVRows(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", s.config.DataFile)
	}
	if len(rows) == 0 {
		return []production.HourlyRecord{}, nil
	}

	for i, row := range rows[1:] {
		if extra := overflow(row, len(rows[0])); extra > 0 {
			return nil, errors.Wrapf(
				errors.ValidationError(fmt.Sprintf("row has %d cells beyond the %d header columns", extra, len(rows[0]))),
				"corrupt record %d in %s", i+1, s.config.DataFile)
		}
	}

	table := excel.TableFromRows(rows)
	records := make([]production.HourlyRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		rec, bad := decodeRow(row, s.config.Shifts)
		if len(bad) > 0 {
			return nil, errors.Wrapf(errors.InvalidFields(bad), "corrupt record %d in %s", i+1, s.config.DataFile)
		}
		records = append(records, rec)
	}

	s.log.Debugw("records loaded", "path", s.config.DataFile, "count", len(records))
	return records, nil
}

// overflow counts the non-empty cells past the header width
func overflow(row []string, width int) int {
	n := 0
	for j := width; j < len(row); j++ {
		if strings.TrimSpace(row[j]) != "" {
			n++
		}
	}
	return n
}

// Append validates one record and writes it to the end of the file,
// creating the file with its header when needed. An empty shift is derived
// from the hour.
func (s *Store) Append(ctx context.Context, record production.HourlyRecord) (production.HourlyRecord, error) {
	if err := ctx.Err(); err != nil {
		return record, err
	}
	if bad := record.Validate(); len(bad) > 0 {
		return record, errors.InvalidFields(bad)
	}
	if record.Shift == "" {
		record.Shift = s.config.Shifts.ShiftForHour(record.Hour)
	}

	if err := s.appendRecords([]production.HourlyRecord{record}); err != nil {
		return record, err
	}
	s.log.Infow("record appended", "machine_id", record.MachineID, "date", record.DateString(), "hour", record.Hour)
	return record, nil
}

// AppendBatch validates every record and writes them in one pass. Nothing
// is written when any record is invalid.
func (s *Store) AppendBatch(ctx context.Context, records []production.HourlyRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	batch := make([]production.HourlyRecord, len(records))
	for i, r := range records {
		if bad := r.Validate(); len(bad) > 0 {
			return 0, errors.Wrapf(errors.InvalidFields(bad), "record %d is invalid", i+1)
		}
		if r.Shift == "" {
			r.Shift = s.config.Shifts.ShiftForHour(r.Hour)
		}
		batch[i] = r
	}

	if err := s.appendRecords(batch); err != nil {
		return 0, err
	}
	s.log.Infow("records appended", "count", len(batch))
	return len(batch), nil
}

func (s *Store) appendRecords(records []production.HourlyRecord) error {
	if len(records) == 0 {
		return nil
	}

	if dir := filepath.Dir(s.config.DataFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create data directory")
		}
	}

	file, err := os.OpenFile(s.config.DataFile, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s for writing", s.config.DataFile)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat data file")
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(production.Columns); err != nil {
			return errors.Wrap(err, "failed to write header")
		}
	} else if err := terminateLastLine(file, info.Size()); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(encodeRecord(r)); err != nil {
			return errors.Wrap(err, "failed to write record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush records")
	}
	return file.Sync()
}

// terminateLastLine adds the line break a hand-edited file may lack, so the
// next row does not run into the last one.
func terminateLastLine(file *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, size-1); err != nil {
		return errors.Wrap(err, "failed to read end of data file")
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		return errors.Wrap(err, "failed to terminate last line")
	}
	return nil
}

// Import appends the valid rows of a CSV or XLSX hourly sheet. The path is
// tried as given, then inside the import directory. Invalid rows are skipped
// and reported; valid rows already written stay written.
func (s *Store) Import(ctx context.Context, path string) (*production.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := s.resolveImport(path)
	if err != nil {
		return nil, err
	}

	data, err := excel.NewDataReader(source, excel.DefaultReaderConfig(), s.log).ReadData()
	if err != nil {
		return nil, errors.WithCode(errors.CodeImportError, errors.Wrapf(err, "failed to read %s", source))
	}

	if missing := data.MissingColumns(requiredImportColumns); len(missing) > 0 {
		appErr := errors.ImportError(fmt.Sprintf("missing required columns: %v", missing))
		appErr.Fields = missing
		return nil, appErr
	}

	result := &production.ImportResult{BatchID: uuid.New().String(), Source: source}
	valid := make([]production.HourlyRecord, 0, len(data.Rows))
	for i, row := range data.Rows {
		rec, bad := decodeRow(row, s.config.Shifts)
		if len(bad) > 0 {
			result.Skipped++
			result.Problems = append(result.Problems, production.RowProblem{
				Line:    i + 2,
				Fields:  bad,
				Message: errors.InvalidFields(bad).Message,
			})
			continue
		}
		valid = append(valid, rec)
	}

	if err := s.appendRecords(valid); err != nil {
		return nil, err
	}
	result.Imported = len(valid)

	s.log.Infow("hourly sheet imported",
		"batch_id", result.BatchID, "source", source,
		"imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func (s *Store) resolveImport(path string) (string, error) {
	candidates := []string{path}
	if s.config.ImportDir != "" && !filepath.IsAbs(path) {
		candidates = append(candidates, filepath.Join(s.config.ImportDir, path))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.NotFound(fmt.Sprintf("import file %s", path))
}

// Query returns the records passing every set filter, in file order
func (s *Store) Query(ctx context.Context, filters production.Filters) ([]production.HourlyRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return filters.Apply(records), nil
}

// ExportCSV writes the header and matching records as CSV
func (s *Store) ExportCSV(ctx context.Context, w io.Writer, filters production.Filters) (int, error) {
	records, err := s.Query(ctx, filters)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(production.Columns); err != nil {
		return 0, errors.Wrap(err, "failed to write header")
	}
	for _, r := range records {
		if err := cw.Write(encodeRecord(r)); err != nil {
			return 0, errors.Wrap(err, "failed to write record")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, errors.Wrap(err, "failed to flush export")
	}
	return len(records), nil
}

// ExportXLSX writes the matching records to a workbook with numeric cells
// for the numeric columns.
func (s *Store) ExportXLSX(ctx context.Context, w io.Writer, filters production.Filters) (int, error) {
	records, err := s.Query(ctx, filters)
	if err != nil {
		return 0, err
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = encodeRecord(r)
	}

	cfg := excel.DefaultWriterConfig()
	cfg.SheetName = "Hourly Sheet"
	for _, col := range []string{
		production.ColHour, production.ColTargetOutput, production.ColActualOutput,
		production.ColCumulativeOutput, production.ColDefectsRework, production.ColDowntimeMinutes,
	} {
		cfg.NumericColumns[col] = true
	}

	if err := excel.WriteWorkbook(w, production.Columns, rows, cfg); err != nil {
		return 0, errors.Wrap(err, "failed to export workbook")
	}
	return len(records), nil
}
