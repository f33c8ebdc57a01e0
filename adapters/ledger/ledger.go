// Package ledger keeps an audit trail of user actions in SQLite or
// PostgreSQL.
package ledger

import (
	"context"
	"time"

	"hourlysheet/domain/activity"
	"hourlysheet/internal/errors"
	"hourlysheet/internal/logging"
	"hourlysheet/internal/migration"
	"hourlysheet/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DefaultLimit caps listings that do not set one
const DefaultLimit = 50

// Ledger implements ports.LedgerPort over sqlx
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
	log *zap.SugaredLogger
}

// Open connects to the database and brings the schema up to date
func Open(ctx context.Context, driver, dsn string, log *zap.SugaredLogger) (*Ledger, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to ledger database", err)
	}
	if driver == "sqlite3" {
		// one connection, so ":memory:" databases are shared and writes serialise
		db.SetMaxOpenConns(1)
	}

	l, err := New(ctx, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an open database, running migrations first
func New(ctx context.Context, db *sqlx.DB, log *zap.SugaredLogger) (*Ledger, error) {
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return nil, errors.Wrap(err, "ledger migration failed")
	}

	log = logging.OrNop(log)
	log.Debugw("ledger ready", "driver", db.DriverName(), "schema", runner.Version())
	return &Ledger{db: db, now: time.Now, log: log}, nil
}

// Record stores entry, assigning its ID and timestamp when unset
func (l *Ledger) Record(ctx context.Context, entry activity.Entry) (activity.Entry, error) {
	if entry.Action == "" {
		return entry, errors.InvalidInput("ledger entry needs an action")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}

	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO activity_ledger (id, action, subject, detail, record_count, created_at)
		VALUES (:id, :action, :subject, :detail, :record_count, :created_at)
	`, entry)
	if err != nil {
		return entry, errors.DatabaseError("failed to record activity", err)
	}

	l.log.Debugw("activity recorded", "id", entry.ID, "action", entry.Action, "subject", entry.Subject)
	return entry, nil
}

// List returns entries newest first
func (l *Ledger) List(ctx context.Context, filter ports.LedgerFilter) ([]activity.Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, action, subject, detail, record_count, created_at FROM activity_ledger`
	var args []interface{}
	if filter.Action != "" {
		query += ` WHERE action = ?`
		args = append(args, filter.Action)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	entries := []activity.Entry{}
	if err := l.db.SelectContext(ctx, &entries, l.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list activity", err)
	}
	for i := range entries {
		entries[i].CreatedAt = entries[i].CreatedAt.UTC()
	}
	return entries, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

var _ ports.LedgerPort = (*Ledger)(nil)
