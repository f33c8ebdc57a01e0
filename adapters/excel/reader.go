package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hourlysheet/internal/logging"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
	log      *zap.SugaredLogger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, config ReaderConfig, log *zap.SugaredLogger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	if config.SheetName == "" {
		config.SheetName = DefaultReaderConfig().SheetName
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		config:   config,
		log:      logging.OrNop(log),
	}
}

// FileType reports which parser the reader will use
func (r *DataReader) FileType() string {
	return r.fileType
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.log.Debugw("reading data file", "type", r.fileType, "path", r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the configured sheet into structured format
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// Fall back to the first sheet when the configured one is absent
	sheet := r.config.SheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		if list := f.GetSheetList(); len(list) > 0 {
			sheet = list[0]
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	r.log.Debugw("sheet read", "sheet", sheet, "rows", len(rows), "elapsed", time.Since(startTime))

	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := ReadCSVRows(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	return r.processRows(rows)
}

// ReadCSVRows reads every row of a CSV stream. Rows may have fewer cells than
// the header; a UTF-8 byte order mark on the first cell is dropped.
func ReadCSVRows(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s file is empty: a header row is required", strings.ToUpper(r.fileType))
	}

	data := TableFromRows(rows)

	r.log.Debugw("data file processed",
		"type", r.fileType, "columns", len(data.Headers), "rows", len(data.Rows))

	return data, nil
}

// TableFromRows treats the first row as the header and keys every following
// row by it. Blank lines are dropped.
func TableFromRows(rows [][]string) *ExcelData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
