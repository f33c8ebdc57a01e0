package production

// Group is a set of records sharing a key, in table order
type Group struct {
	Key     string
	Records []HourlyRecord
	Indexes []int // positions of Records in the source slice
}

// GroupBy partitions records by key. Groups are returned in the order their
// key is first encountered, which is what argmax tie-breaking relies on.
func GroupBy(records []HourlyRecord, key func(HourlyRecord) string) []Group {
	positions := make(map[string]int)
	var groups []Group

	for i, r := range records {
		k := key(r)
		pos, ok := positions[k]
		if !ok {
			pos = len(groups)
			positions[k] = pos
			groups = append(groups, Group{Key: k})
		}
		groups[pos].Records = append(groups[pos].Records, r)
		groups[pos].Indexes = append(groups[pos].Indexes, i)
	}

	return groups
}

// ByMachine keys records by machine ID
func ByMachine(r HourlyRecord) string { return r.MachineID }

// ByOperator keys records by operator name
func ByOperator(r HourlyRecord) string { return r.OperatorName }

// ByShift keys records by shift
func ByShift(r HourlyRecord) string { return string(r.Shift) }

// ByMachineProduct keys records by machine and product
func ByMachineProduct(r HourlyRecord) string { return r.MachineID + "\x1f" + r.ProductName }

// Totals accumulates the additive fields of a set of records
type Totals struct {
	Hours    int     `json:"hours"`
	Target   float64 `json:"target_output"`
	Actual   float64 `json:"actual_output"`
	Defects  int     `json:"defects_rework"`
	Downtime float64 `json:"downtime_minutes"`
}

// Sum totals the records
func Sum(records []HourlyRecord) Totals {
	var t Totals
	for _, r := range records {
		t.Hours++
		t.Target += r.TargetOutput
		t.Actual += r.ActualOutput
		t.Defects += r.DefectsRework
		t.Downtime += r.DowntimeMinutes
	}
	return t
}

// Distinct returns the distinct values of key in first-seen order
func Distinct(records []HourlyRecord, key func(HourlyRecord) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, r := range records {
		v := key(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}
