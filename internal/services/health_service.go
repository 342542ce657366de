package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"silverpulse/internal/config"
	"silverpulse/pkg/contracts"
)

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// SnapshotSource reports whether a refresh has completed
type SnapshotSource interface {
	HasSnapshot() bool
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     config.PathsConfig
	dashboard SnapshotSource
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. dashboard and clients may be nil.
func NewHealthService(version string, paths config.PathsConfig, dashboard SnapshotSource, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized", slog.String("version", version))

	return &HealthService{
		version:   version,
		paths:     paths,
		dashboard: dashboard,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status. The service is ready once the
// data directory is usable and a first snapshot exists.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"data":      hs.checkDataHealth(),
			"dashboard": hs.checkDashboardHealth(),
			"websocket": hs.checkWebSocketHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"data_format":  info.DataFormat,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDashboardHealth() ServiceHealth {
	if hs.dashboard == nil || !hs.dashboard.HasSnapshot() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: ErrNoSnapshot.Error(),
		}
	}
	return ServiceHealth{Status: "ready", Message: "snapshot available"}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	msg := "WebSocket hub not attached"
	if hs.clients != nil {
		msg = fmt.Sprintf("%d clients connected", hs.clients.ClientCount())
	}
	return ServiceHealth{
		Status:  "ready",
		Message: msg,
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	dataDir := hs.paths.DataDir
	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not found: %s", dataDir),
		}
	}

	probe, err := os.CreateTemp(dataDir, ".ready-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to data directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{Status: "ready", Message: "Data directory is writable"}
}
