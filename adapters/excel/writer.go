package excel

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes a header and rows as a single-sheet workbook to w.
// Cells of NumericColumns that parse as numbers are stored as numbers.
func WriteWorkbook(w io.Writer, headers []string, rows [][]string, config WriterConfig) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = DefaultWriterConfig().SheetName
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, value := range row {
			cells[j] = value
			if j < len(headers) && config.NumericColumns[headers[j]] {
				if n, err := strconv.ParseFloat(value, 64); err == nil {
					cells[j] = n
				}
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
