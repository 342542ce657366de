package history

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/shared/testutil"
	"silverpulse/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.HistoryDateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(v float64) *float64 { return &v }

func openStore(t *testing.T, content string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory_history.csv")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	logger, _ := testutil.NewTestLogger(t)
	s, err := Open(path, logger)
	require.NoError(t, err)
	return s, path
}

func TestStore_UpsertIsIdempotentPerDay(t *testing.T) {
	s, path := openStore(t, "")

	require.NoError(t, s.Upsert(domain.HistoryEntry{Date: day("2026-01-22"), Registered: 100, Eligible: ptr(10)}))
	require.NoError(t, s.Upsert(domain.HistoryEntry{Date: day("2026-01-22"), Registered: 100, Eligible: ptr(10)}))
	require.NoError(t, s.Upsert(domain.HistoryEntry{Date: day("2026-01-22").Add(15 * time.Hour), Registered: 120}))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 120.0, entries[0].Registered)
	assert.Nil(t, entries[0].Eligible)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Registered,Eligible,Source\n2026-01-22,120,,reported\n", string(content))
}

func TestStore_RoundTrip(t *testing.T) {
	s, path := openStore(t, "")

	dates := []string{"2026-01-05", "2025-12-31", "2026-01-02", "2025-11-30"}
	for i, d := range dates {
		require.NoError(t, s.Upsert(domain.HistoryEntry{Date: day(d), Registered: float64(100 + i), Eligible: ptr(float64(i))}))
	}

	logger, _ := testutil.NewTestLogger(t)
	reopened, err := Open(path, logger)
	require.NoError(t, err)

	entries := reopened.Entries()
	require.Len(t, entries, len(dates))
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Date.Before(entries[i].Date), "entries sorted by date")
	}
	assert.Equal(t, "2025-11-30", entries[0].Key())
	assert.Equal(t, 103.0, entries[0].Registered)
	require.NotNil(t, entries[0].Eligible)
	assert.Equal(t, 3.0, *entries[0].Eligible)
}

func TestOpen_LegacyLayouts(t *testing.T) {
	s, _ := openStore(t, "\ufeffDate,Registered\n2025-01-02,31000000\n2025-01-03,\"30,500,000\"\nbad,1\n")
	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 30500000.0, entries[1].Registered)
	assert.Nil(t, entries[1].Eligible)

	s, _ = openStore(t, "Date,Registered,Eligible\n2025-01-02,31000000,250000000\n2025-01-03,30000000,\n")
	entries = s.Entries()
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Eligible)
	assert.Equal(t, 250000000.0, *entries[0].Eligible)
	assert.Nil(t, entries[1].Eligible)

	s, _ = openStore(t, "Date,Registered,Eligible,Source\n2025-01-02,31000000,,synthetic\n")
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.True(t, latest.Synthetic)
}

func TestOpen_Missing(t *testing.T) {
	s, _ := openStore(t, "")
	assert.Equal(t, 0, s.Len())
	_, ok := s.Latest()
	assert.False(t, ok)
	assert.Zero(t, s.Span())
}

func TestStore_RejectsInvalid(t *testing.T) {
	s, _ := openStore(t, "")

	err := s.Upsert(domain.HistoryEntry{Date: day("2026-01-22"), Registered: -1})
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

	err = s.Upsert(domain.HistoryEntry{Registered: 1})
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

	assert.Equal(t, 0, s.Len())
}

func TestStore_WriteFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)
	s, err := Open(filepath.Join(dir, "data", "history.csv"), logger)
	require.NoError(t, err)

	// a regular file where the data directory should be
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("x"), 0644))

	err = s.Upsert(domain.HistoryEntry{Date: day("2026-01-22"), Registered: 1})
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
	assert.Equal(t, 0, s.Len())
}

func TestStore_RangeSpanExport(t *testing.T) {
	s, _ := openStore(t, "")
	require.NoError(t, s.UpsertMany([]domain.HistoryEntry{
		{Date: day("2026-01-01"), Registered: 1},
		{Date: day("2026-01-10"), Registered: 2},
		{Date: day("2026-01-20"), Registered: 3, Synthetic: true},
	}))

	assert.Equal(t, 19*24*time.Hour, s.Span())

	got := s.Range(day("2026-01-05"), time.Time{})
	require.Len(t, got, 2)
	assert.Equal(t, "2026-01-10", got[0].Key())

	got = s.Range(time.Time{}, day("2026-01-10"))
	assert.Len(t, got, 2)

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf, day("2026-01-10"), time.Time{}, true))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2026-01-20,3,,synthetic", lines[2])
}

func TestStore_EntriesAreCopies(t *testing.T) {
	s, _ := openStore(t, "")
	require.NoError(t, s.Upsert(domain.HistoryEntry{Date: day("2026-01-01"), Registered: 1, Eligible: ptr(5)}))

	entries := s.Entries()
	*entries[0].Eligible = 99
	entries[0].Registered = 42

	again := s.Entries()
	assert.Equal(t, 1.0, again[0].Registered)
	assert.Equal(t, 5.0, *again[0].Eligible)
}
