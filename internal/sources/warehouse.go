package sources

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"silverpulse/internal/config"
	"silverpulse/internal/dataprocessing"
	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/exporter"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

// WarehouseAdapter downloads the COMEX silver warehouse report and runs the
// tabular extractor over it. The raw file is cached locally after a
// successful decode so extraction can run without a live fetch.
type WarehouseAdapter struct {
	url       string
	cachePath string
	client    *resty.Client
	processor *dataprocessing.ReportProcessor
	logger    *slog.Logger
	now       func() time.Time
}

// NewWarehouseAdapter creates the warehouse report adapter. An empty
// cachePath disables the local report cache.
func NewWarehouseAdapter(cfg config.SourcesConfig, cachePath string, logger *slog.Logger) *WarehouseAdapter {
	logger = infrastructure.WithComponent(logger, "source").With(slog.String("source", IDWarehouse))
	return &WarehouseAdapter{
		url:       cfg.WarehouseURL,
		cachePath: cachePath,
		client:    newClient(cfg.UserAgent, cfg.WarehouseTimeout),
		processor: dataprocessing.NewReportProcessor(logger),
		logger:    logger,
		now:       time.Now,
	}
}

func (a *WarehouseAdapter) ID() string              { return IDWarehouse }
func (a *WarehouseAdapter) Kind() domain.MetricKind { return domain.MetricWarehouseInventory }

// Fetch performs one download and extraction attempt
func (a *WarehouseAdapter) Fetch(ctx context.Context) (*domain.FetchResult, error) {
	body, err := execute(ctx, a.client.R().SetHeader("Accept", "*/*"), http.MethodGet, a.url)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}

	extraction, err := a.processor.Process(body)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}

	if a.cachePath != "" {
		if err := exporter.WriteFileAtomic(a.cachePath, body); err != nil {
			a.logger.WarnContext(ctx, "Failed to cache report",
				slog.String("path", a.cachePath),
				slog.String("error", err.Error()))
		}
	}

	return a.result(extraction, a.now()), nil
}

// LoadCached extracts the last successfully downloaded report
func (a *WarehouseAdapter) LoadCached() (*domain.FetchResult, error) {
	if a.cachePath == "" {
		return nil, Unavailable(a.ID(), apperrors.NewNotFoundError("cached report"))
	}
	info, err := os.Stat(a.cachePath)
	if err != nil {
		return nil, Unavailable(a.ID(), apperrors.NewNotFoundError("cached report"))
	}

	extraction, err := a.processor.ProcessFile(a.cachePath)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}
	return a.result(extraction, info.ModTime()), nil
}

func (a *WarehouseAdapter) result(ex *dataprocessing.Extraction, fetchedAt time.Time) *domain.FetchResult {
	rec := ex.Record
	if rec.AsOf.IsZero() {
		rec.AsOf = domain.Day(fetchedAt)
	}
	return &domain.FetchResult{
		Source:    a.ID(),
		Kind:      a.Kind(),
		Inventory: rec,
		Table:     ex.Table,
		Strategy:  rec.HeaderStrategy + "/" + rec.TotalsStrategy,
		FetchedAt: fetchedAt,
	}
}
