package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/config"
	"silverpulse/internal/shared/testutil"
)

type stubSnapshot bool

func (s stubSnapshot) HasSnapshot() bool { return bool(s) }

type stubClients int

func (c stubClients) ClientCount() int { return int(c) }

func TestHealthService_Readiness(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	paths := config.PathsConfig{DataDir: t.TempDir()}

	tests := []struct {
		name      string
		paths     config.PathsConfig
		dashboard SnapshotSource
		want      string
	}{
		{"ready", paths, stubSnapshot(true), "ready"},
		{"no snapshot", paths, stubSnapshot(false), "not_ready"},
		{"no dashboard", paths, nil, "not_ready"},
		{"missing data dir", config.PathsConfig{DataDir: paths.DataDir + "/missing"}, stubSnapshot(true), "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthService("1.2.0", tt.paths, tt.dashboard, stubClients(2), logger)
			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Len(t, status.Services, 3)
		})
	}
}

func TestHealthService_HealthLivenessVersion(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.0", config.PathsConfig{}, nil, nil, logger)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	require.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "1.2.0", v["version"])
	assert.Contains(t, v, "api_version")

	ws := hs.checkWebSocketHealth()
	assert.Equal(t, "ready", ws.Status)
	assert.Contains(t, ws.Message, "not attached")
}
