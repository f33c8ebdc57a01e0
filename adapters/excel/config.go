package excel

// ReaderConfig holds configuration for spreadsheet sources
type ReaderConfig struct {
	SheetName string `json:"sheet_name"`
}

// DefaultReaderConfig returns sensible defaults for spreadsheet processing
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		SheetName: "Sheet1",
	}
}

// WriterConfig controls workbook exports
type WriterConfig struct {
	SheetName string `json:"sheet_name"`
	// NumericColumns are written as numbers rather than text
	NumericColumns map[string]bool `json:"numeric_columns"`
}

// DefaultWriterConfig writes a single Sheet1 with every cell as text
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		SheetName:      "Sheet1",
		NumericColumns: map[string]bool{},
	}
}
