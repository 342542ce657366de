package domain

import (
	"time"
)

// MetricStatus reports one external source in a snapshot
type MetricStatus struct {
	Kind      MetricKind      `json:"kind"`
	Source    string          `json:"source"`
	Available bool            `json:"available"`
	Metric    *ExternalMetric `json:"metric,omitempty"`
	Display   string          `json:"display"`
	Reason    string          `json:"reason,omitempty"`
	Cached    bool            `json:"cached"`
	Attempts  int             `json:"attempts"`
}

// AppState is the immutable snapshot handed to presentation consumers.
// It is built once per refresh cycle and replaced wholesale.
type AppState struct {
	CycleID        string                      `json:"cycle_id"`
	RefreshedAt    time.Time                   `json:"refreshed_at"`
	Inventory      *NormalizedRecord           `json:"inventory"`
	InventoryError string                      `json:"inventory_error,omitempty"`
	InventoryStale bool                        `json:"inventory_stale,omitempty"`
	Table          *ReportTable                `json:"table,omitempty"`
	Metrics        map[MetricKind]MetricStatus `json:"metrics"`
	Indicators     DerivedIndicators           `json:"indicators"`
	History        []HistoryEntry              `json:"history"`
	Backfill       *BackfillReport             `json:"backfill,omitempty"`
}
