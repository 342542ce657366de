package domain

import (
	"time"
)

// WarehouseRow is one depository line of the COMEX warehouse report
type WarehouseRow struct {
	Name       string  `json:"name" validate:"required"`
	Registered float64 `json:"registered" validate:"gte=0"`
	Eligible   float64 `json:"eligible" validate:"gte=0"`
}

// NormalizedRecord is the aggregate inventory extracted from one warehouse report.
// A nil *NormalizedRecord means the totals could not be located; it is never zero-filled.
type NormalizedRecord struct {
	Registered         float64        `json:"registered" validate:"gte=0"`
	Eligible           float64        `json:"eligible" validate:"gte=0"`
	Total              float64        `json:"total" validate:"gte=0"`
	AsOf               time.Time      `json:"as_of"`
	WarehouseBreakdown []WarehouseRow `json:"warehouse_breakdown" validate:"dive"`

	// Provenance of the extracted values
	HeaderStrategy string `json:"header_strategy"`
	TotalsStrategy string `json:"totals_strategy"`
}

// RegisteredShare returns registered/(registered+eligible) and false when the
// denominator is zero.
func (r *NormalizedRecord) RegisteredShare() (float64, bool) {
	if r == nil {
		return 0, false
	}
	denom := r.Registered + r.Eligible
	if denom <= 0 {
		return 0, false
	}
	return r.Registered / denom, true
}

// ReportTable is the full depository table below the detected header row,
// with forward-filled and deduplicated column names.
type ReportTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}
