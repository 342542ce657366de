package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/config"
)

func TestInitializeLogger_File(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "app.log")
	cfg := config.LoggingConfig{
		Level:      "info",
		Output:     "file",
		MaxSizeMB:  1,
		MaxBackups: 1,
	}

	logger, err := InitializeLogger(cfg, logFile)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLogger_FileWithoutPath(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	_, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file"}, "")
	assert.Error(t, err)
}

func TestTraceHandlerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "with trace")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "trace-123", entry["trace_id"])
}

func TestTraceHandlerPreservesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLogger(&buf, "info"), "executor")

	logger.InfoContext(WithTraceID(context.Background(), "abc"), "fetch done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "executor", entry["component"])
	assert.Equal(t, "abc", entry["trace_id"])
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"warning": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in).String(), in)
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)

	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "existing id is kept")
}
