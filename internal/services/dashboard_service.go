package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"silverpulse/internal/history"
	"silverpulse/internal/indicators"
	"silverpulse/internal/infrastructure"
	"silverpulse/internal/operations"
	"silverpulse/internal/sources"
	"silverpulse/pkg/contracts/domain"
	"silverpulse/pkg/contracts/events"
)

// Refresh triggers
const (
	TriggerStartup   = "startup"
	TriggerSchedule  = "schedule"
	TriggerManual    = "manual"
	TriggerCLI       = "cli"
	reasonRefresh    = "refresh"
	reasonBackfill   = "backfill"
	reasonShortSpan  = "history shorter than minimum span"
	reasonEmptyStore = "history empty"
)

// metricKinds are the external metrics shown on the dashboard, in display order
var metricKinds = []domain.MetricKind{
	domain.MetricSLVHoldings,
	domain.MetricSpotPrice,
	domain.MetricOpenInterest,
	domain.MetricRegionalBenchmark,
	domain.MetricVaultHoldings,
}

// Fetcher runs every adapter once per cycle
type Fetcher interface {
	FetchAll(ctx context.Context, force bool) map[string]operations.Outcome
	Sources() []operations.SourceStatus
	Cache() *operations.ResultCache
}

// ReportCache re-extracts the last downloaded warehouse report
type ReportCache interface {
	LoadCached() (*domain.FetchResult, error)
}

// WebSocketHub interface for WebSocket communication
type WebSocketHub interface {
	Broadcast(messageType string, data interface{})
}

// SourcesReport is the per-adapter status with cache statistics
type SourcesReport struct {
	Sources []operations.SourceStatus `json:"sources"`
	Cache   operations.CacheStats     `json:"cache"`
}

// DashboardService runs refresh cycles and holds the latest snapshot
type DashboardService struct {
	fetcher    Fetcher
	reports    ReportCache
	store      *history.Store
	backfiller *history.Backfiller
	hub        WebSocketHub
	metrics    *infrastructure.FetchMetrics
	logger     *slog.Logger
	now        func() time.Time

	refreshMu sync.Mutex

	stateMu sync.RWMutex
	state   *domain.AppState
}

// DashboardDeps are the collaborators of a DashboardService. Reports,
// Backfiller, Hub and Metrics are optional.
type DashboardDeps struct {
	Fetcher    Fetcher
	Reports    ReportCache
	Store      *history.Store
	Backfiller *history.Backfiller
	Hub        WebSocketHub
	Metrics    *infrastructure.FetchMetrics
}

// NewDashboardService creates a dashboard service
func NewDashboardService(deps DashboardDeps, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		fetcher:    deps.Fetcher,
		reports:    deps.Reports,
		store:      deps.Store,
		backfiller: deps.Backfiller,
		hub:        deps.Hub,
		metrics:    deps.Metrics,
		logger:     logger.With(slog.String("service", "dashboard")),
		now:        time.Now,
	}
}

// Refresh runs one cycle: fetch, record history, backfill, compute and
// publish. Cycles are serialized. force bypasses the result cache.
func (s *DashboardService) Refresh(ctx context.Context, force bool, trigger string) (*domain.AppState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	cycleID := uuid.New().String()
	ctx = infrastructure.WithTraceID(ctx, cycleID)
	ctx, span := infrastructure.StartSpan(ctx, "dashboard.refresh",
		attribute.String("cycle_id", cycleID),
		attribute.String("trigger", trigger),
		attribute.Bool("force", force))
	defer span.End()

	start := s.now()
	s.logger.InfoContext(ctx, "Refresh started",
		slog.String("cycle_id", cycleID),
		slog.String("trigger", trigger),
		slog.Bool("force", force))

	outcomes := s.fetcher.FetchAll(ctx, force)

	state := &domain.AppState{
		CycleID:     cycleID,
		RefreshedAt: start,
		Metrics:     make(map[domain.MetricKind]domain.MetricStatus, len(metricKinds)),
	}

	var anchor *domain.HistoryEntry
	s.applyWarehouse(ctx, state, outcomes)
	if state.Inventory != nil && !state.InventoryStale {
		anchor = s.recordHistory(ctx, state.Inventory)
	}

	if s.backfiller != nil && s.backfiller.Needed() {
		reason := reasonShortSpan
		if s.store.Len() == 0 {
			reason = reasonEmptyStore
		}
		report, err := s.backfiller.Backfill(ctx, reason, anchor)
		if err != nil {
			s.logger.WarnContext(ctx, "History backfill failed", slog.String("error", err.Error()))
		}
		if report.Source != domain.BackfillNone || report.Error != "" {
			state.Backfill = &report
		}
		s.metrics.RecordHistoryWrites(ctx, reasonBackfill, report.Added)
	}

	values := make(map[domain.MetricKind]*domain.ExternalMetric, len(metricKinds))
	for _, kind := range metricKinds {
		status := metricStatus(kind, outcomes)
		state.Metrics[kind] = status
		if status.Available {
			values[kind] = status.Metric
		}
	}

	state.History = s.store.Entries()
	state.Indicators = indicators.Compute(state.Inventory, state.History, values)

	s.publish(ctx, state)
	s.metrics.RecordRefresh(ctx, trigger, force)

	s.logger.InfoContext(ctx, "Refresh completed",
		slog.String("cycle_id", cycleID),
		slog.Bool("inventory", state.Inventory != nil),
		slog.Bool("stale", state.InventoryStale),
		slog.String("tier", string(state.Indicators.SqueezeTier.Tier)),
		slog.Int("history", len(state.History)),
		slog.Duration("duration", s.now().Sub(start)))

	return state, nil
}

// applyWarehouse sets the inventory from the fresh result, else from the
// cached report flagged stale, else records why it is missing
func (s *DashboardService) applyWarehouse(ctx context.Context, state *domain.AppState, outcomes map[string]operations.Outcome) {
	out, ok := outcomes[sources.IDWarehouse]
	if ok && out.Result != nil && out.Result.Inventory != nil {
		state.Inventory = out.Result.Inventory
		state.Table = out.Result.Table
		return
	}

	switch {
	case !ok:
		state.InventoryError = ErrWarehouseDisabled.Error()
	case out.Err != nil:
		state.InventoryError = out.Err.Error()
	default:
		state.InventoryError = "warehouse report has no inventory totals"
	}

	if s.reports == nil {
		return
	}
	cached, err := s.reports.LoadCached()
	if err != nil || cached.Inventory == nil {
		s.logger.WarnContext(ctx, "No inventory available",
			slog.String("reason", state.InventoryError))
		return
	}

	s.logger.WarnContext(ctx, "Using cached warehouse report",
		slog.String("reason", state.InventoryError),
		slog.Time("fetched_at", cached.FetchedAt))
	state.Inventory = cached.Inventory
	state.Table = cached.Table
	state.InventoryStale = true
}

// recordHistory upserts today's observation and returns it as the backfill
// anchor. A write failure is logged and does not fail the cycle.
func (s *DashboardService) recordHistory(ctx context.Context, rec *domain.NormalizedRecord) *domain.HistoryEntry {
	eligible := rec.Eligible
	entry := domain.HistoryEntry{
		Date:       domain.Day(rec.AsOf),
		Registered: rec.Registered,
		Eligible:   &eligible,
	}
	if err := s.store.Upsert(entry); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record history",
			slog.String("date", entry.Key()),
			slog.String("error", err.Error()))
		infrastructure.RecordError(ctx, err)
		return &entry
	}
	s.metrics.RecordHistoryWrites(ctx, reasonRefresh, 1)
	return &entry
}

func metricStatus(kind domain.MetricKind, outcomes map[string]operations.Outcome) domain.MetricStatus {
	status := domain.MetricStatus{
		Kind:    kind,
		Source:  string(kind),
		Display: domain.NotAvailable,
	}

	out, ok := outcomes[string(kind)]
	if !ok {
		status.Reason = "source disabled"
		return status
	}
	status.Attempts = out.Attempts
	status.Cached = out.Cached

	if out.Result == nil || out.Result.Metric == nil {
		status.Reason = "no value"
		if out.Err != nil {
			status.Reason = out.Err.Error()
		}
		return status
	}

	v, present := out.Result.Metric.Float()
	if !present {
		status.Reason = "no value"
		return status
	}
	status.Available = true
	status.Metric = out.Result.Metric
	status.Display = domain.Defined(v).String()
	return status
}

func (s *DashboardService) publish(ctx context.Context, state *domain.AppState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	if s.hub != nil {
		s.hub.Broadcast(events.TypeDashboardUpdate, state)
		s.logger.DebugContext(ctx, "Snapshot broadcast", slog.String("cycle_id", state.CycleID))
	}
}

// State returns the latest snapshot. The snapshot is shared and must not be
// modified.
func (s *DashboardService) State() (*domain.AppState, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state == nil {
		return nil, ErrNoSnapshot
	}
	return s.state, nil
}

// Indicators returns the indicators of the latest snapshot
func (s *DashboardService) Indicators() (domain.DerivedIndicators, error) {
	state, err := s.State()
	if err != nil {
		return domain.DerivedIndicators{}, err
	}
	return state.Indicators, nil
}

// History returns stored entries between from and to inclusive
func (s *DashboardService) History(from, to time.Time) ([]domain.HistoryEntry, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to %s is before from %s", ErrInvalidDateRange,
			to.Format(domain.HistoryDateLayout), from.Format(domain.HistoryDateLayout))
	}
	return s.store.Range(from, to), nil
}

// ExportHistory writes entries between from and to as CSV with a BOM
func (s *DashboardService) ExportHistory(w io.Writer, from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return ErrInvalidDateRange
	}
	if s.store.Len() == 0 {
		return ErrHistoryEmpty
	}
	return s.store.Export(w, from, to, true)
}

// Sources returns adapter status and cache statistics
func (s *DashboardService) Sources() SourcesReport {
	return SourcesReport{
		Sources: s.fetcher.Sources(),
		Cache:   s.fetcher.Cache().Stats(),
	}
}

// HasSnapshot reports whether at least one cycle has completed
func (s *DashboardService) HasSnapshot() bool {
	_, err := s.State()
	return err == nil
}
