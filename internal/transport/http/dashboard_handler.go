package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	mw "silverpulse/internal/middleware"
	"silverpulse/internal/services"
	"silverpulse/pkg/contracts/domain"
)

// DashboardHandler serves the snapshot, history and source endpoints
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *mw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    mw.NewQueryParamValidator(logger, errorHandler),
		logger:       infrastructure.WithComponent(logger, "dashboard_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetDashboard)
	r.Post("/refresh", h.Refresh)
	r.Get("/indicators", h.GetIndicators)
	return r
}

// HistoryRoutes returns the /api/history routes
func (h *DashboardHandler) HistoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.GetHistory)
	r.Get("/export", h.ExportHistory)
	return r
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

// Refresh handles POST /api/dashboard/refresh?force=true
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	force, ok := h.validator.ValidateBool(w, r, "force", false)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "manual refresh requested",
		slog.String("request_id", mw.GetRequestID(r.Context())),
		slog.Bool("force", force))

	state, err := h.service.Refresh(r.Context(), force, services.TriggerManual)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "refresh failed", slog.String("error", err.Error()))
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

// GetIndicators handles GET /api/dashboard/indicators
func (h *DashboardHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	ind, err := h.service.Indicators()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, ind)
}

// GetHistory handles GET /api/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DashboardHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(from, to)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   entries,
		"count":  len(entries),
	})
}

// ExportHistory handles GET /api/history/export
func (h *DashboardHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportHistory(&buf, from, to); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("silver_inventory_history_%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "history export write failed", slog.String("error", err.Error()))
	}
}

// GetSources handles GET /api/sources
func (h *DashboardHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Sources())
}

func (h *DashboardHandler) dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, ok := h.validator.ValidateDate(w, r, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := h.validator.ValidateDate(w, r, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// handleServiceError maps service sentinels onto API errors
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoSnapshot):
		h.errorHandler.HandleError(w, r, apierrors.ErrNoSnapshot)
	case errors.Is(err, services.ErrInvalidDateRange):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("to", "to must not be before from"))
	case errors.Is(err, services.ErrHistoryEmpty):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("history"))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
