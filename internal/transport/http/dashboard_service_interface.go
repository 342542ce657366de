package http

import (
	"context"
	"io"
	"time"

	"silverpulse/internal/services"
	"silverpulse/pkg/contracts/domain"
)

// DashboardServiceInterface is what the dashboard and history handlers need
type DashboardServiceInterface interface {
	Refresh(ctx context.Context, force bool, trigger string) (*domain.AppState, error)
	State() (*domain.AppState, error)
	Indicators() (domain.DerivedIndicators, error)
	History(from, to time.Time) ([]domain.HistoryEntry, error)
	ExportHistory(w io.Writer, from, to time.Time) error
	Sources() services.SourcesReport
}
