package indicators

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.HistoryDateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(registered, eligible float64, asOf string) *domain.NormalizedRecord {
	return &domain.NormalizedRecord{
		Registered: registered,
		Eligible:   eligible,
		Total:      registered + eligible,
		AsOf:       day(asOf),
	}
}

func entry(date string, registered float64) domain.HistoryEntry {
	return domain.HistoryEntry{Date: day(date), Registered: registered}
}

func TestCompute_Scenarios(t *testing.T) {
	t.Run("depository report", func(t *testing.T) {
		ind := Compute(record(113269767, 301972070, "2026-01-23"), nil, nil)
		require.True(t, ind.RegisteredRatio.Defined)
		assert.InDelta(t, 0.2728, ind.RegisteredRatio.Value, 0.0001)
		assert.Equal(t, domain.TierSafe, ind.SqueezeTier.Tier)
		assert.Equal(t, "🟢 SAFE - Supply Stable", ind.SqueezeTier.Label)
		assert.False(t, ind.OIToRegisteredRatio.Defined)
		assert.False(t, ind.WithdrawalTrend.Defined)
	})

	t.Run("critical", func(t *testing.T) {
		ind := Compute(record(5_000_000, 50_000_000, "2026-01-23"), nil, nil)
		assert.Equal(t, domain.TierCritical, ind.SqueezeTier.Tier)
		assert.InDelta(t, 0.0909, ind.RegisteredRatio.Value, 0.0001)
	})

	t.Run("open interest leverage", func(t *testing.T) {
		metrics := map[domain.MetricKind]*domain.ExternalMetric{
			domain.MetricOpenInterest: domain.NewExternalMetric(domain.MetricOpenInterest, 200000, "open_interest", time.Now()),
		}
		ind := Compute(record(100_000_000, 1, "2026-01-23"), nil, metrics)
		require.True(t, ind.OIToRegisteredRatio.Defined)
		assert.InDelta(t, 10.0, ind.OIToRegisteredRatio.Value, 1e-9)
	})

	t.Run("absent record", func(t *testing.T) {
		ind := Compute(nil, nil, nil)
		assert.False(t, ind.RegisteredRatio.Defined)
		assert.Equal(t, domain.TierUnknown, ind.SqueezeTier.Tier)
		assert.Equal(t, "N/A", ind.RegisteredRatio.String())
	})
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		registered float64
		want       domain.SqueezeTier
	}{
		{0, domain.TierCritical},
		{9_999_999, domain.TierCritical},
		{10_000_000, domain.TierAlert},
		{49_999_999, domain.TierAlert},
		{50_000_000, domain.TierSafe},
		{113_269_767, domain.TierSafe},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.registered), "registered=%v", tt.registered)
	}
}

func TestRegisteredRatio_ZeroDenominator(t *testing.T) {
	assert.False(t, RegisteredRatio(record(0, 0, "2026-01-23")).Defined)
}

func TestOIToRegisteredRatio_ZeroRegistered(t *testing.T) {
	assert.False(t, OIToRegisteredRatio(200000, record(0, 10, "2026-01-23")).Defined)
	assert.False(t, OIToRegisteredRatio(200000, nil).Defined)
}

func TestWithdrawalTrend(t *testing.T) {
	rec := record(100_000_000, 0, "2026-01-23")

	tests := []struct {
		name    string
		history []domain.HistoryEntry
		want    float64
		defined bool
	}{
		{
			name:    "exact week",
			history: []domain.HistoryEntry{entry("2026-01-16", 104_000_000), entry("2026-01-22", 101_000_000)},
			want:    -4_000_000,
			defined: true,
		},
		{
			name:    "nearest within tolerance",
			history: []domain.HistoryEntry{entry("2026-01-13", 90_000_000), entry("2026-01-20", 99_000_000)},
			want:    10_000_000,
			defined: true,
		},
		{
			name:    "tie goes to the earlier entry",
			history: []domain.HistoryEntry{entry("2026-01-14", 95_000_000), entry("2026-01-18", 97_000_000)},
			want:    5_000_000,
			defined: true,
		},
		{
			name:    "too sparse even with older data",
			history: []domain.HistoryEntry{entry("2025-12-01", 120_000_000), entry("2026-01-23", 100_000_000)},
			defined: false,
		},
		{
			name:    "exactly five days away",
			history: []domain.HistoryEntry{entry("2026-01-11", 98_000_000)},
			want:    2_000_000,
			defined: true,
		},
		{
			name: "synthetic entries ignored",
			history: []domain.HistoryEntry{
				{Date: day("2026-01-16"), Registered: 1, Synthetic: true},
			},
			defined: false,
		},
		{
			name:    "empty",
			defined: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithdrawalTrend(rec, tt.history)
			assert.Equal(t, tt.defined, got.Defined)
			if tt.defined {
				assert.Equal(t, tt.want, got.Value)
			}
		})
	}
}

func TestWithdrawalTrend_FromHistoryOnly(t *testing.T) {
	history := []domain.HistoryEntry{
		entry("2026-01-16", 104_000_000),
		entry("2026-01-23", 100_000_000),
	}
	got := WithdrawalTrend(nil, history)
	require.True(t, got.Defined)
	assert.Equal(t, -4_000_000.0, got.Value)
}

func TestIndicatorJSON(t *testing.T) {
	ind := Compute(nil, nil, nil)
	data, err := json.Marshal(ind)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"registered_ratio":"N/A"`)
	assert.Contains(t, string(data), `"tier":"N/A"`)

	data, err = json.Marshal(Compute(record(5_000_000, 5_000_000, "2026-01-23"), nil, nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"registered_ratio":0.5`)
}
