package production

import "time"

// Stats is the headline summary of a set of records
type Stats struct {
	Records         int        `json:"records"`
	TotalTarget     float64    `json:"total_target"`
	TotalProduction float64    `json:"total_production"`
	TotalDefects    int        `json:"total_defects"`
	TotalDowntime   float64    `json:"total_downtime"`
	Efficiency      float64    `json:"efficiency"`
	DefectRate      float64    `json:"defect_rate"`
	Machines        int        `json:"machines"`
	Operators       int        `json:"operators"`
	FirstDate       *time.Time `json:"first_date,omitempty"`
	LastDate        *time.Time `json:"last_date,omitempty"`
}

// DowntimeEvent is a record hour that lost time for a stated reason
type DowntimeEvent struct {
	Date            time.Time `json:"date"`
	Shift           Shift     `json:"shift"`
	Hour            int       `json:"hour"`
	MachineID       string    `json:"machine_id"`
	DowntimeMinutes float64   `json:"downtime_minutes"`
	Reason          string    `json:"reason"`
}

// RowProblem describes one import row that was skipped
type RowProblem struct {
	Line    int      `json:"line"` // 1-based, header is line 1
	Fields  []string `json:"fields"`
	Message string   `json:"message"`
}

// ImportResult reports the outcome of an import
type ImportResult struct {
	BatchID  string       `json:"batch_id"`
	Source   string       `json:"source"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Problems []RowProblem `json:"problems,omitempty"`
}
