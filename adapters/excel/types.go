package excel

// RawRowData represents a row of raw Excel data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents the complete Excel dataset
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// MissingColumns returns the required columns absent from the header, in the
// order they were asked for. Names must match exactly.
func (d *ExcelData) MissingColumns(required []string) []string {
	present := make(map[string]bool, len(d.Headers))
	for _, h := range d.Headers {
		present[h] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// HasColumn reports whether the header contains col
func (d *ExcelData) HasColumn(col string) bool {
	return len(d.MissingColumns([]string{col})) == 0
}
