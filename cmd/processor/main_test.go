package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/history"
	"silverpulse/internal/shared/testutil"
	"silverpulse/pkg/contracts/domain"
)

func writeSampleReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Silver_stocks.xlsx")
	require.NoError(t, os.WriteFile(path, testutil.SampleReportXLSX(t), 0644))
	return path
}

func TestRun_Summary(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	var out bytes.Buffer

	err := run(options{In: writeSampleReport(t)}, &out, logger)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "2026-01-23")
	assert.Contains(t, text, "113269767")
	assert.Contains(t, text, "301972070")
	assert.Contains(t, text, "BRINK'S INC")
}

func TestRun_JSON(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	var out bytes.Buffer

	require.NoError(t, run(options{In: writeSampleReport(t), JSON: true}, &out, logger))

	var rec domain.NormalizedRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, 113269767.0, rec.Registered)
	assert.Equal(t, 415241837.0, rec.Total)
	assert.Len(t, rec.WarehouseBreakdown, 2)
}

func TestRun_TableAndRecord(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	dir := t.TempDir()
	opts := options{
		In:          writeSampleReport(t),
		TableOut:    filepath.Join(dir, "table.csv"),
		Record:      true,
		HistoryFile: filepath.Join(dir, "history.csv"),
	}

	require.NoError(t, run(opts, &bytes.Buffer{}, logger))

	table, err := os.ReadFile(opts.TableOut)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(table), "\ufeff"))
	assert.Contains(t, string(table), "ASAHI REFINING USA INC")

	store, err := history.Open(opts.HistoryFile, logger)
	require.NoError(t, err)
	latest, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, "2026-01-23", latest.Key())
	assert.Equal(t, 113269767.0, latest.Registered)
	testutil.AssertLogContains(t, handler, "History entry recorded")
}

func TestRun_MissingReport(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	err := run(options{In: filepath.Join(t.TempDir(), "nope.xlsx")}, &bytes.Buffer{}, logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "report not found")
}

func TestRun_Unparseable(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "garbage.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0644))

	assert.Error(t, run(options{In: path}, &bytes.Buffer{}, logger))
}
