package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes Prometheus metrics
type MetricsHandler struct {
	prom http.Handler
}

// NewMetricsHandler wraps the exporter handler. A nil handler falls back to
// the default Prometheus registry.
func NewMetricsHandler(prom http.Handler) *MetricsHandler {
	if prom == nil {
		prom = promhttp.Handler()
	}
	return &MetricsHandler{prom: prom}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.prom.ServeHTTP(w, r)
}
