package metrics

import (
	"sort"

	"hourlysheet/domain/production"
)

// Summarize computes the headline statistics of records
func Summarize(records []production.HourlyRecord) production.Stats {
	totals := production.Sum(records)
	stats := production.Stats{
		Records:         totals.Hours,
		TotalTarget:     totals.Target,
		TotalProduction: totals.Actual,
		TotalDefects:    totals.Defects,
		TotalDowntime:   totals.Downtime,
		Efficiency:      Efficiency(totals.Actual, totals.Target),
		DefectRate:      DefectRate(float64(totals.Defects), totals.Actual),
		Machines:        len(production.Distinct(records, production.ByMachine)),
		Operators:       len(production.Distinct(records, production.ByOperator)),
	}

	for _, r := range records {
		if stats.FirstDate == nil || r.Date.Before(*stats.FirstDate) {
			first := r.Date
			stats.FirstDate = &first
		}
		if stats.LastDate == nil || r.Date.After(*stats.LastDate) {
			last := r.Date
			stats.LastDate = &last
		}
	}
	return stats
}

// RecentDowntime returns up to limit downtime events that carry a reason,
// newest first. Among equal date and hour the later row wins.
func RecentDowntime(records []production.HourlyRecord, limit int) []production.DowntimeEvent {
	type indexed struct {
		idx int
		rec production.HourlyRecord
	}
	var hits []indexed
	for i, r := range records {
		if r.DowntimeMinutes > 0 && r.ReasonForDowntime != "" {
			hits = append(hits, indexed{i, r})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		ra, rb := hits[a].rec, hits[b].rec
		if !ra.Date.Equal(rb.Date) {
			return ra.Date.After(rb.Date)
		}
		if ra.Hour != rb.Hour {
			return ra.Hour > rb.Hour
		}
		return hits[a].idx > hits[b].idx
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	events := make([]production.DowntimeEvent, len(hits))
	for i, h := range hits {
		events[i] = production.DowntimeEvent{
			Date:            h.rec.Date,
			Shift:           h.rec.Shift,
			Hour:            h.rec.Hour,
			MachineID:       h.rec.MachineID,
			DowntimeMinutes: h.rec.DowntimeMinutes,
			Reason:          h.rec.ReasonForDowntime,
		}
	}
	return events
}
