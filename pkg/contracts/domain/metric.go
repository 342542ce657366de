package domain

import (
	"time"
)

// MetricKind tags an ExternalMetric
type MetricKind string

const (
	MetricSLVHoldings       MetricKind = "slv_holdings"
	MetricSpotPrice         MetricKind = "spot_price"
	MetricOpenInterest      MetricKind = "open_interest"
	MetricRegionalBenchmark MetricKind = "regional_benchmark"
	MetricVaultHoldings     MetricKind = "vault_holdings"

	// MetricWarehouseInventory is the kind reported by the warehouse adapter,
	// whose payload is a NormalizedRecord rather than a single value.
	MetricWarehouseInventory MetricKind = "warehouse_inventory"
)

// Unit returns the display unit for the metric kind
func (k MetricKind) Unit() string {
	switch k {
	case MetricSLVHoldings, MetricVaultHoldings, MetricWarehouseInventory:
		return "oz"
	case MetricSpotPrice, MetricRegionalBenchmark:
		return "USD/oz"
	case MetricOpenInterest:
		return "contracts"
	default:
		return ""
	}
}

// ExternalMetric is a single value scraped from a non-warehouse source
type ExternalMetric struct {
	Kind      MetricKind `json:"kind" validate:"required"`
	Value     *float64   `json:"value"`
	Unit      string     `json:"unit"`
	Source    string     `json:"source"`
	AsOf      time.Time  `json:"as_of,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`

	// Regional benchmark only: local price in CNY/kg and the FX rate used
	LocalValue *float64 `json:"local_value,omitempty"`
	LocalUnit  string   `json:"local_unit,omitempty"`
	FXRate     *float64 `json:"fx_rate,omitempty"`
	FXFallback bool     `json:"fx_fallback,omitempty"`
}

// NewExternalMetric builds a metric with a present value
func NewExternalMetric(kind MetricKind, value float64, source string, fetchedAt time.Time) *ExternalMetric {
	v := value
	return &ExternalMetric{
		Kind:      kind,
		Value:     &v,
		Unit:      kind.Unit(),
		Source:    source,
		FetchedAt: fetchedAt,
	}
}

// Float returns the metric value and whether it is present
func (m *ExternalMetric) Float() (float64, bool) {
	if m == nil || m.Value == nil {
		return 0, false
	}
	return *m.Value, true
}

// FetchResult is what an adapter returns on success. Exactly one of
// Inventory or Metric is set.
type FetchResult struct {
	Source    string            `json:"source"`
	Kind      MetricKind        `json:"kind"`
	Inventory *NormalizedRecord `json:"inventory,omitempty"`
	Table     *ReportTable      `json:"table,omitempty"`
	Metric    *ExternalMetric   `json:"metric,omitempty"`
	Strategy  string            `json:"strategy,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}
