package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"silverpulse/internal/config"
	"silverpulse/pkg/contracts/domain"
)

// Adapter ids. They double as the keys accepted by sources.disabled.
const (
	IDWarehouse         = "warehouse"
	IDSLVHoldings       = "slv_holdings"
	IDOpenInterest      = "open_interest"
	IDSpotPrice         = "spot_price"
	IDRegionalBenchmark = "regional_benchmark"
	IDVaultHoldings     = "vault_holdings"
)

// TroyOuncesPerKilogram converts exchange kilogram figures to ounces
const TroyOuncesPerKilogram = 32.1507

// ErrNotFound is matched by every adapter failure
var ErrNotFound = errors.New("source value not available")

// Adapter fetches one upstream source and extracts a typed result
type Adapter interface {
	ID() string
	Kind() domain.MetricKind
	Fetch(ctx context.Context) (*domain.FetchResult, error)
}

// unavailableError carries the classified cause while matching ErrNotFound
type unavailableError struct {
	source string
	err    error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.source, e.err)
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrNotFound, e.err}
}

// Unavailable converts any adapter failure into a NotFound outcome
func Unavailable(source string, err error) error {
	if err == nil {
		err = errors.New("no value")
	}
	return &unavailableError{source: source, err: err}
}

// BuildAdapters constructs every adapter that is not disabled in config
func BuildAdapters(cfg *config.Config, reportCachePath string, logger *slog.Logger) []Adapter {
	src := cfg.Sources
	all := []Adapter{
		NewWarehouseAdapter(src, reportCachePath, logger),
		NewETFAdapter(src, logger),
		NewOpenInterestAdapter(src, logger),
		NewSpotPriceAdapter(src, logger),
		NewBenchmarkAdapter(src, logger),
		NewVaultAdapter(src, logger),
	}

	adapters := make([]Adapter, 0, len(all))
	for _, a := range all {
		if cfg.SourceEnabled(a.ID()) {
			adapters = append(adapters, a)
		} else {
			logger.Info("Source disabled", slog.String("source", a.ID()))
		}
	}
	return adapters
}

func metricResult(id string, m *domain.ExternalMetric, strategy string) *domain.FetchResult {
	return &domain.FetchResult{
		Source:    id,
		Kind:      m.Kind,
		Metric:    m,
		Strategy:  strategy,
		FetchedAt: m.FetchedAt,
	}
}
