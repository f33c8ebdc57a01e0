package ledger

import (
	"context"
	"testing"
	"time"

	"hourlysheet/domain/activity"
	"hourlysheet/internal/errors"
	"hourlysheet/internal/migration"
	"hourlysheet/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), "sqlite3", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	tick := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return l
}

func TestRecordAssignsIDAndTime(t *testing.T) {
	l := openMemory(t)

	e, err := l.Record(context.Background(), activity.Entry{Action: activity.ActionAppend, Subject: "M1", RecordCount: 1})
	require.NoError(t, err)
	assert.Len(t, e.ID, 36)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 1, 0, 0, time.UTC), e.CreatedAt)
}

func TestRecordRequiresAction(t *testing.T) {
	l := openMemory(t)

	_, err := l.Record(context.Background(), activity.Entry{Subject: "M1"})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := openMemory(t)

	for _, a := range []activity.Action{activity.ActionImport, activity.ActionAppend, activity.ActionPredict, activity.ActionAppend} {
		_, err := l.Record(ctx, activity.Entry{Action: a, Detail: string(a)})
		require.NoError(t, err)
	}

	all, err := l.List(ctx, ports.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, activity.ActionAppend, all[0].Action)
	assert.Equal(t, activity.ActionImport, all[3].Action)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	appends, err := l.List(ctx, ports.LedgerFilter{Action: activity.ActionAppend})
	require.NoError(t, err)
	assert.Len(t, appends, 2)

	limited, err := l.List(ctx, ports.LedgerFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, all[0].ID, limited[0].ID)
}

func TestListEmpty(t *testing.T) {
	l := openMemory(t)

	entries, err := l.List(context.Background(), ports.LedgerFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	l := openMemory(t)
	runner := migration.NewRunner()

	require.NoError(t, runner.Run(context.Background(), l.db))

	var count int
	require.NoError(t, l.db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 2, count)
	assert.Equal(t, "002_activity_action_index", runner.Version())
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "nosuchdriver", "x", nil)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}
