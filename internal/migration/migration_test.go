package migration

import (
	"context"
	"testing"

	"hourlysheet/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStatusBeforeAndAfterRun(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	runner := NewRunner()

	before, err := runner.Status(ctx, db)
	require.NoError(t, err)
	require.Len(t, before, len(steps))
	for _, s := range before {
		assert.False(t, s.Applied, s.Version)
	}

	require.NoError(t, runner.Run(ctx, db))

	after, err := runner.Status(ctx, db)
	require.NoError(t, err)
	for _, s := range after {
		assert.True(t, s.Applied, s.Version)
		assert.False(t, s.Modified, s.Version)
	}
	assert.Equal(t, "002_activity_action_index", runner.Version())
}

func TestRunCreatesLedgerTable(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	require.NoError(t, NewRunner().Run(ctx, db))

	_, err := db.ExecContext(ctx,
		`INSERT INTO activity_ledger (id, action, created_at) VALUES ('a', 'fit', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM activity_ledger`))
	assert.Equal(t, 1, n)
}

func TestModifiedMigrationIsRejected(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	runner := NewRunner()
	require.NoError(t, runner.Run(ctx, db))

	_, err := db.ExecContext(ctx, `UPDATE schema_migrations SET checksum = 'stale' WHERE version = '001_activity_ledger'`)
	require.NoError(t, err)

	err = runner.Run(ctx, db)
	assert.True(t, errors.Is(err, errors.CodeDatabaseError))

	status, err := runner.Status(ctx, db)
	require.NoError(t, err)
	assert.True(t, status[0].Modified)
	assert.False(t, status[1].Modified)
}
