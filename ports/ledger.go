package ports

import (
	"context"

	"hourlysheet/domain/activity"
)

// LedgerWriterPort appends audit entries. Entries are never updated.
type LedgerWriterPort interface {
	Record(ctx context.Context, entry activity.Entry) (activity.Entry, error)
}

// LedgerReaderPort lists audit entries, newest first
type LedgerReaderPort interface {
	List(ctx context.Context, filter LedgerFilter) ([]activity.Entry, error)
}

// LedgerFilter narrows a ledger listing
type LedgerFilter struct {
	Action activity.Action
	Limit  int
}

// LedgerPort combines read and write access
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}

// ActivityPublisherPort fans audit entries out to live listeners. Publish
// must not block.
type ActivityPublisherPort interface {
	Publish(entry activity.Entry)
}
