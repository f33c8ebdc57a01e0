package ports

import (
	"context"
	"io"

	"hourlysheet/domain/production"
)

// RecordReaderPort provides read access to the hourly record table.
// Every call reflects the latest persisted state.
type RecordReaderPort interface {
	Load(ctx context.Context) ([]production.HourlyRecord, error)
	Query(ctx context.Context, filters production.Filters) ([]production.HourlyRecord, error)
}

// RecordStorePort combines read, write and export access
type RecordStorePort interface {
	RecordReaderPort
	Append(ctx context.Context, record production.HourlyRecord) (production.HourlyRecord, error)
	AppendBatch(ctx context.Context, records []production.HourlyRecord) (int, error)
	Import(ctx context.Context, path string) (*production.ImportResult, error)
	ExportCSV(ctx context.Context, w io.Writer, filters production.Filters) (int, error)
	ExportXLSX(ctx context.Context, w io.Writer, filters production.Filters) (int, error)
}
