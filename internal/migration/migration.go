package migration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"hourlysheet/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// step is one schema change. Statements must be valid on both SQLite and
// PostgreSQL.
type step struct {
	version    string
	statements []string
}

func (s step) checksum() string {
	h := sha256.New()
	for _, stmt := range s.statements {
		h.Write([]byte(stmt))
	}
	return hex.EncodeToString(h.Sum(nil))
}

var steps = []step{
	{
		version: "001_activity_ledger",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS activity_ledger (
				id VARCHAR(36) PRIMARY KEY,
				action VARCHAR(32) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				detail TEXT NOT NULL DEFAULT '',
				record_count INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity_ledger(created_at)`,
		},
	},
	{
		version: "002_activity_action_index",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_activity_action ON activity_ledger(action, created_at)`,
		},
	},
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: steps[len(steps)-1].version,
	}
}

// Version returns the latest schema version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run applies pending migrations in order. Applied versions are recorded
// with a checksum; a changed checksum is an error.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := ensureTable(ctx, db); err != nil {
		return err
	}

	applied, err := r.applied(ctx, db)
	if err != nil {
		return err
	}

	for _, s := range steps {
		sum := s.checksum()
		if prev, ok := applied[s.version]; ok {
			if prev != sum {
				return errors.DatabaseError(fmt.Sprintf("migration %s was modified after it was applied", s.version), nil)
			}
			continue
		}
		if err := r.apply(ctx, db, s, sum); err != nil {
			return errors.Wrapf(err, "failed to run migration %s", s.version)
		}
	}

	return nil
}

// StepStatus reports one known migration
type StepStatus struct {
	Version  string
	Applied  bool
	Modified bool // applied with a different checksum
}

// Status lists every known migration in order
func (r *MigrationRunner) Status(ctx context.Context, db *sqlx.DB) ([]StepStatus, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := r.applied(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]StepStatus, 0, len(steps))
	for _, s := range steps {
		prev, ok := applied[s.version]
		out = append(out, StepStatus{
			Version:  s.version,
			Applied:  ok,
			Modified: ok && prev != s.checksum(),
		})
	}
	return out, nil
}

func ensureTable(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(64) PRIMARY KEY,
			checksum VARCHAR(64) NOT NULL
		)
	`); err != nil {
		return errors.DatabaseError("failed to create schema_migrations table", err)
	}
	return nil
}

func (r *MigrationRunner) applied(ctx context.Context, db *sqlx.DB) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT version, checksum FROM schema_migrations`); err != nil {
		return nil, errors.DatabaseError("failed to read applied migrations", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Version] = row.Checksum
	}
	return out, nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, s step, sum string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin migration", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError("migration statement failed", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO schema_migrations (version, checksum) VALUES (?, ?)`),
		s.version, sum); err != nil {
		return errors.DatabaseError("failed to record migration", err)
	}

	return tx.Commit()
}
