package dataprocessing

import (
	"fmt"
	"log/slog"
	"os"

	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
)

// ReportProcessor decodes a warehouse report payload and extracts the totals,
// logging which strategies matched.
type ReportProcessor struct {
	logger *slog.Logger
}

// NewReportProcessor creates a report processor
func NewReportProcessor(logger *slog.Logger) *ReportProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportProcessor{logger: infrastructure.WithComponent(logger, "report_processor")}
}

// Process decodes and extracts a report payload
func (p *ReportProcessor) Process(data []byte) (*Extraction, error) {
	grid, err := DecodeWorkbook(data)
	if err != nil {
		p.logger.Warn("Report decode failed",
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()))
		return nil, err
	}

	extraction, err := Extract(grid)
	if err != nil {
		p.logger.Warn("Report extraction failed",
			slog.Int("rows", len(grid)),
			slog.String("error", err.Error()))
		return nil, err
	}

	rec := extraction.Record
	p.logger.Info("Report extracted",
		slog.Int("header_row", extraction.HeaderIndex),
		slog.String("header_strategy", rec.HeaderStrategy),
		slog.String("totals_strategy", rec.TotalsStrategy),
		slog.Float64("registered", rec.Registered),
		slog.Float64("eligible", rec.Eligible),
		slog.Int("depositories", len(rec.WarehouseBreakdown)))

	return extraction, nil
}

// ProcessFile runs Process against a report file on disk
func (p *ReportProcessor) ProcessFile(path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read report %s", path), err)
	}
	return p.Process(data)
}
