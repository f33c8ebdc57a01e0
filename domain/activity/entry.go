// Package activity describes the audit trail of user actions.
package activity

import "time"

// Action names a user-visible operation
type Action string

const (
	ActionAppend  Action = "append"
	ActionImport  Action = "import"
	ActionExport  Action = "export"
	ActionAsk     Action = "ask"
	ActionFit     Action = "fit"
	ActionPredict Action = "predict"
	ActionAnomaly Action = "anomalies"
	ActionIssue   Action = "issue"
	ActionSeed    Action = "seed"
)

// Entry is one ledger row
type Entry struct {
	ID          string    `db:"id" json:"id"`
	Action      Action    `db:"action" json:"action"`
	Subject     string    `db:"subject" json:"subject"`
	Detail      string    `db:"detail" json:"detail"`
	RecordCount int       `db:"record_count" json:"record_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
