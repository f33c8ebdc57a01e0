package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.csv")
	content := "\ufeffMachine_ID, Actual_Output ,Notes\nM1,100,ok\n\nM2,98\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	data, err := NewDataReader(path, DefaultReaderConfig(), nil).ReadData()
	require.NoError(t, err)

	assert.Equal(t, []string{"Machine_ID", "Actual_Output", "Notes"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "100", data.Rows[0]["Actual_Output"])
	assert.Equal(t, "M2", data.Rows[1]["Machine_ID"])
	assert.Equal(t, "", data.Rows[1]["Notes"])
	assert.Equal(t, []string{"Date"}, data.MissingColumns([]string{"Machine_ID", "Date"}))
}

func TestReadDataMissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv"), DefaultReaderConfig(), nil).ReadData()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadEmptyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewDataReader(path, DefaultReaderConfig(), nil).ReadData()
	require.Error(t, err)
}

func TestWorkbookRoundTrip(t *testing.T) {
	headers := []string{"Machine_ID", "Actual_Output", "Remarks"}
	rows := [][]string{
		{"M1", "100", "fine"},
		{"M2", "97.5", ""},
	}
	cfg := DefaultWriterConfig()
	cfg.NumericColumns["Actual_Output"] = true

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, headers, rows, cfg))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	reader := NewDataReader(path, DefaultReaderConfig(), nil)
	assert.Equal(t, "xlsx", reader.FileType())

	data, err := reader.ReadData()
	require.NoError(t, err)
	assert.Equal(t, headers, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "M1", data.Rows[0]["Machine_ID"])
	assert.Equal(t, "97.5", strings.TrimSpace(data.Rows[1]["Actual_Output"]))
}
