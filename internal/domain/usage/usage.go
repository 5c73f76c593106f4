// Package usage describes embedding spend and cache state over a period.
package usage

import (
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod converts a request value. Empty selects PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return p, nil
	}
	return "", fmt.Errorf("unknown usage period %q (want day, month or total)", s)
}

// Bounds returns the UTC period containing now. PeriodTotal has no bounds.
func (p Period) Bounds(now time.Time) (start, end time.Time) {
	now = now.UTC()
	switch p {
	case PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	return time.Time{}, time.Time{}
}

// Budget is the token quota state for a period. Limit 0 means unlimited, in
// which case Remaining is -1.
type Budget struct {
	Limit     int64 `json:"limit"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
	Exhausted bool  `json:"exhausted"`
	// ResetsAt is zero for PeriodTotal.
	ResetsAt time.Time `json:"resets_at,omitzero"`
}

// Cache describes the embedding cache.
type Cache struct {
	Backend    string `json:"backend"`
	Entries    int    `json:"entries"`
	Persistent bool   `json:"persistent"`
}

// Report is an embedding usage report for a time period.
type Report struct {
	Period        Period    `json:"period"`
	PeriodStart   time.Time `json:"period_start,omitzero"`
	PeriodEnd     time.Time `json:"period_end,omitzero"`
	RemoteEnabled bool      `json:"remote_enabled"`
	Budget        Budget    `json:"budget"`
	Cache         Cache     `json:"cache"`
}
