package domain

import (
	"time"
)

// HistoryDateLayout is the on-disk and API date format for history entries
const HistoryDateLayout = "2006-01-02"

// HistoryEntry is one calendar day of registered/eligible inventory
type HistoryEntry struct {
	Date       time.Time `json:"date"`
	Registered float64   `json:"registered" validate:"gte=0"`
	Eligible   *float64  `json:"eligible,omitempty" validate:"omitempty,gte=0"`
	Synthetic  bool      `json:"synthetic,omitempty"`
}

// Day truncates t to a UTC calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key returns the calendar day key of the entry
func (e HistoryEntry) Key() string {
	return e.Date.Format(HistoryDateLayout)
}

// BackfillSource identifies where backfilled rows came from
type BackfillSource string

const (
	BackfillNone      BackfillSource = "none"
	BackfillArchive   BackfillSource = "archive"
	BackfillSynthetic BackfillSource = "synthetic"
)

// BackfillReport summarizes a backfill run
type BackfillReport struct {
	Reason  string         `json:"reason"`
	Source  BackfillSource `json:"source"`
	Added   int            `json:"added"`
	Skipped int            `json:"skipped"`
	Error   string         `json:"error,omitempty"`
}
