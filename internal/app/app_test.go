package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/config"
	"silverpulse/internal/infrastructure"
	"silverpulse/internal/sources"
	"silverpulse/pkg/contracts/events"
)

// newTestApp builds an application in a temp dir with every upstream
// disabled, so refreshes never touch the network.
func newTestApp(t *testing.T) *Application {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Logging.Output = "console"
	cfg.Logging.Level = "error"
	cfg.Telemetry.MetricExporter = "none"
	cfg.History.BackfillEnabled = false
	cfg.Security.RateLimit.Enabled = false
	cfg.Sources.Disabled = []string{
		sources.IDWarehouse,
		sources.IDSLVHoldings,
		sources.IDOpenInterest,
		sources.IDSpotPrice,
		sources.IDRegionalBenchmark,
		sources.IDVaultHoldings,
	}

	app, err := New(cfg)
	require.NoError(t, err)
	app.WebSocketHub.Start()
	t.Cleanup(app.WebSocketHub.Stop)
	return app
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNew_WiresComponents(t *testing.T) {
	app := newTestApp(t)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.DashboardService)
	assert.NotNil(t, app.History)
	assert.NotNil(t, app.Scheduler)
	assert.Equal(t, ":8080", app.Server.Addr)
	assert.DirExists(t, app.Paths.DataDir)
	assert.DirExists(t, app.Paths.LogsDir)
	assert.Empty(t, app.Executor.Sources())
}

func TestRouter_DashboardLifecycle(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app.Router, http.MethodGet, "/api/dashboard")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NO_SNAPSHOT", decode(t, rec)["error_code"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, app.Router, http.MethodPost, "/api/dashboard/refresh?force=true")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.NotEmpty(t, body["cycle_id"])
	assert.Equal(t, "warehouse source disabled", body["inventory_error"])

	rec = do(t, app.Router, http.MethodGet, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body["cycle_id"], decode(t, rec)["cycle_id"])

	rec = do(t, app.Router, http.MethodGet, "/api/dashboard/indicators")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "N/A", decode(t, rec)["registered_ratio"])
}

func TestRouter_Endpoints(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK},
		{"liveness", http.MethodGet, "/api/health/live", http.StatusOK},
		{"readiness before refresh", http.MethodGet, "/api/health/ready", http.StatusServiceUnavailable},
		{"version", http.MethodGet, "/api/version", http.StatusOK},
		{"sources", http.MethodGet, "/api/sources", http.StatusOK},
		{"history", http.MethodGet, "/api/history?from=2024-01-01", http.StatusOK},
		{"history bad date", http.MethodGet, "/api/history?from=01-01-2024", http.StatusBadRequest},
		{"export of empty history", http.MethodGet, "/api/history/export", http.StatusNotFound},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app.Router, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	app := newTestApp(t)
	rec := do(t, app.Router, http.MethodGet, "/api/health")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_WebSocketReceivesRefresh(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() events.WebSocketMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var msg events.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, events.MessageTypeConnect, read().Type)
	require.Eventually(t, func() bool { return app.WebSocketHub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = app.DashboardService.Refresh(context.Background(), false, "test")
	require.NoError(t, err)

	assert.Equal(t, events.MessageTypeDashboardUpdate, read().Type)
}
