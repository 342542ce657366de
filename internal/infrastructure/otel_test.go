package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitializeOTel_Defaults(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider, "trace export is off by default")
	assert.NotNil(t, providers.Tracer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.MetricExporter = "statsd"

	_, err := InitializeOTel(cfg, discardLogger())
	assert.Error(t, err)
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestFetchMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := CreateFetchMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordFetch(ctx, "warehouse", 3, time.Second, errors.New("timeout"))
	m.RecordFetch(ctx, "etf", 1, 200*time.Millisecond, nil)
	m.RecordCacheHit(ctx, "etf")
	m.RecordRefresh(ctx, "manual", true)
	m.RecordHistoryWrites(ctx, "snapshot", 1)

	sums := collectSums(t, reader)
	assert.Equal(t, int64(4), sums["fetch_attempts_total"])
	assert.Equal(t, int64(1), sums["fetch_failures_total"])
	assert.Equal(t, int64(1), sums["fetch_cache_hits_total"])
	assert.Equal(t, int64(1), sums["refresh_cycles_total"])
	assert.Equal(t, int64(1), sums["history_entries_written_total"])
}

func TestFetchMetrics_NilSafe(t *testing.T) {
	var m *FetchMetrics
	assert.NotPanics(t, func() {
		m.RecordFetch(context.Background(), "x", 1, time.Second, nil)
		m.RecordCacheHit(context.Background(), "x")
		m.RecordRefresh(context.Background(), "x", false)
	})
}
