package dataprocessing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/shared/testutil"
)

func TestExtract_SampleReport(t *testing.T) {
	ex, err := Extract(testutil.SampleReportGrid())
	require.NoError(t, err)

	rec := ex.Record
	assert.Equal(t, 113269767.0, rec.Registered)
	assert.Equal(t, 301972070.0, rec.Eligible)
	assert.Equal(t, 415241837.0, rec.Total)
	assert.Equal(t, HeaderMarkerPair, rec.HeaderStrategy)
	assert.Equal(t, TotalsLabelled, rec.TotalsStrategy)
	assert.Equal(t, time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC), rec.AsOf)

	require.Len(t, rec.WarehouseBreakdown, 2)
	assert.Equal(t, "ASAHI REFINING USA INC", rec.WarehouseBreakdown[0].Name)
	assert.Equal(t, 1000000.0, rec.WarehouseBreakdown[0].Registered)
	assert.Equal(t, 2400000.0, rec.WarehouseBreakdown[0].Eligible)
	assert.Equal(t, "BRINK'S INC", rec.WarehouseBreakdown[1].Name)
	assert.Equal(t, 112269767.0, rec.WarehouseBreakdown[1].Registered)

	assert.Equal(t, []string{"DEPOSITORY", "PREV TOTAL", "RECEIVED", "WITHDRAWN", "NET CHANGE", "ADJUSTMENT", "TOTAL TODAY"}, ex.Table.Columns)
	for _, row := range ex.Table.Rows {
		assert.Len(t, row, len(ex.Table.Columns))
	}
}

func TestExtract_DepositoryHeaderScenario(t *testing.T) {
	grid := Grid{
		{"Silver Warehouse Stocks"},
		{"Troy ounces"},
		{"DEPOSITORY", "REGISTERED", "ELIGIBLE"},
		{"BRINK'S INC", "100", "200"},
		{"TOTAL REGISTERED", "", "113269767"},
		{"TOTAL ELIGIBLE", "", "301972070"},
	}

	ex, err := Extract(grid)
	require.NoError(t, err)
	assert.Equal(t, 2, ex.HeaderIndex)
	assert.Equal(t, HeaderDepository, ex.Record.HeaderStrategy)
	assert.Equal(t, 113269767.0, ex.Record.Registered)
	assert.Equal(t, 301972070.0, ex.Record.Eligible)

	share, ok := ex.Record.RegisteredShare()
	require.True(t, ok)
	assert.InDelta(t, 0.2728, share, 0.0001)
}

func TestExtract_IgnoresSurroundingBlanks(t *testing.T) {
	base, err := Extract(testutil.SampleReportGrid())
	require.NoError(t, err)

	var padded Grid
	padded = append(padded, []string{}, []string{"", "", ""}, []string{" "})
	for _, row := range testutil.SampleReportGrid() {
		padded = append(padded, append([]string{"", ""}, append(row, "", "")...))
	}
	padded = append(padded, []string{"", "", "", ""}, nil)

	ex, err := Extract(padded)
	require.NoError(t, err)
	assert.Equal(t, base.Record.Registered, ex.Record.Registered)
	assert.Equal(t, base.Record.Eligible, ex.Record.Eligible)
	assert.Equal(t, base.Table.Columns, ex.Table.Columns)
}

func TestExtract_NotFound(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
	}{
		{"empty", Grid{}},
		{"only blanks", Grid{{"", " "}, {}}},
		{"no markers and no total", Grid{
			{"Name", "Value"},
			{"Alpha", "1"},
			{"Beta", "2"},
		}},
		{"total row without numbers", Grid{
			{"DEPOSITORY", "REGISTERED", "ELIGIBLE"},
			{"TOTAL", "n/a", "-"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := Extract(tt.grid)
			assert.Nil(t, ex)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.Equal(t, apperrors.ErrTypeFieldNotFound, apperrors.TypeOf(err))
		})
	}
}

func TestExtract_TotalRowFallbacks(t *testing.T) {
	t.Run("keyword columns", func(t *testing.T) {
		grid := Grid{
			{"DEPOSITORY", "PREV", "REGISTERED", "ELIGIBLE"},
			{"TOTAL", "999", "10", "20"},
		}
		ex, err := Extract(grid)
		require.NoError(t, err)
		assert.Equal(t, TotalsKeyword, ex.Record.TotalsStrategy)
		assert.Equal(t, 10.0, ex.Record.Registered)
		assert.Equal(t, 20.0, ex.Record.Eligible)
	})

	t.Run("positional", func(t *testing.T) {
		grid := Grid{
			{"DEPOSITORY", "A", "B"},
			{"Total", "1,500", "2,500"},
		}
		ex, err := Extract(grid)
		require.NoError(t, err)
		assert.Equal(t, TotalsPositional, ex.Record.TotalsStrategy)
		assert.Equal(t, 1500.0, ex.Record.Registered)
		assert.Equal(t, 2500.0, ex.Record.Eligible)
		assert.Equal(t, 4000.0, ex.Record.Total)
	})

	t.Run("only one labelled row", func(t *testing.T) {
		grid := Grid{
			{"DEPOSITORY", "X", "Y"},
			{"TOTAL REGISTERED", "7", "8"},
		}
		ex, err := Extract(grid)
		require.NoError(t, err)
		assert.Equal(t, TotalsPositional, ex.Record.TotalsStrategy)
		assert.Equal(t, 7.0, ex.Record.Registered)
		assert.Equal(t, 8.0, ex.Record.Eligible)
	})
}

func TestExtract_ZeroIsNotMissing(t *testing.T) {
	grid := Grid{
		{"DEPOSITORY", "RECEIVED", "WITHDRAWN", "TOTAL TODAY"},
		{"TOTAL REGISTERED", "0", "0", "0"},
		{"TOTAL ELIGIBLE", "0", "0", "5"},
	}
	ex, err := Extract(grid)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ex.Record.Registered)
	assert.Equal(t, 5.0, ex.Record.Eligible)
}

func TestExtract_NegativeTotalsRejected(t *testing.T) {
	grid := Grid{
		{"DEPOSITORY", "RECEIVED", "WITHDRAWN"},
		{"TOTAL REGISTERED", "", "(5)"},
		{"TOTAL ELIGIBLE", "", "10"},
	}
	_, err := Extract(grid)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeOutOfRange, apperrors.TypeOf(err))
}

func TestLocateHeader_WeakMarkerLengthLimit(t *testing.T) {
	narrative := "This DEPOSITORY report " + strings.Repeat("is a long narrative paragraph ", 6)
	grid := Grid{
		{narrative},
		{"DEPOSITORY", "REGISTERED", "ELIGIBLE"},
	}
	idx, strategy := locateHeader(grid)
	assert.Equal(t, 1, idx)
	assert.Equal(t, HeaderDepository, strategy)

	idx, strategy = locateHeader(Grid{{"just", "words"}, {"more"}})
	assert.Equal(t, 0, idx)
	assert.Equal(t, HeaderFirstRow, strategy)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t,
		[]string{"A", "A_2", "B", "A_3", "A_2_2"},
		normalizeHeader([]string{"A", "", "B", "A", "A_2"}))
	assert.Equal(t,
		[]string{"Unnamed", "X", "X_2"},
		normalizeHeader([]string{"", "X", " "}))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"113,269,767", 113269767, true},
		{" 42 ", 42, true},
		{"1.5e3", 1500, true},
		{"(1,000)", -1000, true},
		{"-250", -250, true},
		{"$31.20", 31.2, true},
		{"", 0, false},
		{"-", 0, false},
		{"N/A", 0, false},
		{"NaN", 0, false},
		{"Registered", 0, false},
		{"1_000", 0, false},
		{"(1_000)", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestReportDate(t *testing.T) {
	d, ok := ReportDate(Grid{{"", "Activity Date: 2026-01-22"}, {"Report Date: 01/23/2026"}})
	require.True(t, ok)
	assert.Equal(t, "2026-01-23", d.Format("2006-01-02"))

	d, ok = ReportDate(Grid{{"Activity Date: 1/22/2026"}})
	require.True(t, ok)
	assert.Equal(t, "2026-01-22", d.Format("2006-01-02"))

	_, ok = ReportDate(Grid{{"no dates here"}})
	assert.False(t, ok)
}
