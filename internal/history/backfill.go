package history

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"silverpulse/internal/config"
	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

// Backfiller lengthens a short history, from an archive when one is
// configured, else with a synthetic series anchored on a real value.
type Backfiller struct {
	store      *Store
	client     *resty.Client
	archiveURL string
	minSpan    time.Duration
	enabled    bool
	synthetic  bool
	logger     *slog.Logger
}

// NewBackfiller creates a backfiller for store
func NewBackfiller(store *Store, cfg config.HistoryConfig, src config.SourcesConfig, logger *slog.Logger) *Backfiller {
	return &Backfiller{
		store: store,
		client: resty.New().
			SetTimeout(src.WarehouseTimeout).
			SetHeader("User-Agent", src.UserAgent).
			SetHeader("Accept", "text/csv, text/plain, */*"),
		archiveURL: cfg.ArchiveURL,
		minSpan:    cfg.MinSpan,
		enabled:    cfg.BackfillEnabled,
		synthetic:  cfg.SyntheticEnabled,
		logger:     infrastructure.WithComponent(logger, "backfill"),
	}
}

// Needed reports whether the store is empty or spans less than the minimum
func (b *Backfiller) Needed() bool {
	return b.store.Len() == 0 || b.store.Span() < b.minSpan
}

// Backfill fills days missing from the store. Existing days are never
// overwritten. anchor is the current real observation; when nil the newest
// reported entry is used.
func (b *Backfiller) Backfill(ctx context.Context, reason string, anchor *domain.HistoryEntry) (domain.BackfillReport, error) {
	report := domain.BackfillReport{Reason: reason, Source: domain.BackfillNone}

	if !b.enabled || !b.Needed() {
		return report, nil
	}

	if b.archiveURL != "" {
		added, skipped, err := b.fromArchive(ctx)
		if err == nil {
			report.Source = domain.BackfillArchive
			report.Added, report.Skipped = added, skipped
			b.logReport(ctx, report)
			return report, nil
		}
		b.logger.WarnContext(ctx, "History archive unavailable",
			slog.String("url", b.archiveURL),
			slog.String("error", err.Error()))
		report.Error = err.Error()
		if !b.Needed() {
			return report, nil
		}
	}

	if !b.synthetic {
		return report, nil
	}

	if anchor == nil {
		anchor = b.latestReported()
	}
	if anchor == nil {
		err := apperrors.NewNotFoundError("real observation to anchor synthetic history")
		report.Error = err.Error()
		return report, err
	}

	series := Synthesize(*anchor, b.minSpan)
	added, skipped, err := b.store.fillMissing(series)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	report.Source = domain.BackfillSynthetic
	report.Added, report.Skipped = added, skipped
	report.Error = ""
	b.logReport(ctx, report)
	return report, nil
}

func (b *Backfiller) fromArchive(ctx context.Context) (int, int, error) {
	resp, err := b.client.R().SetContext(ctx).Get(b.archiveURL)
	if err != nil {
		return 0, 0, apperrors.NewTransportError("history archive request failed", err)
	}
	if resp.IsError() {
		return 0, 0, apperrors.NewTransportError(fmt.Sprintf("history archive returned %d", resp.StatusCode()), nil)
	}

	entries, rowErrs, err := decodeEntries(bytes.NewReader(resp.Body()))
	if err != nil {
		return 0, 0, apperrors.NewDecodeError("history archive is not CSV", err)
	}
	if len(entries) == 0 {
		return 0, 0, apperrors.NewFieldNotFoundError("history archive rows")
	}
	for i := range entries {
		entries[i].Synthetic = false
	}

	added, skipped, err := b.store.fillMissing(entries)
	return added, skipped + len(rowErrs), err
}

func (b *Backfiller) latestReported() *domain.HistoryEntry {
	entries := b.store.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Synthetic {
			e := entries[i]
			return &e
		}
	}
	return nil
}

func (b *Backfiller) logReport(ctx context.Context, r domain.BackfillReport) {
	b.logger.InfoContext(ctx, "History backfilled",
		slog.String("reason", r.Reason),
		slog.String("source", string(r.Source)),
		slog.Int("added", r.Added),
		slog.Int("skipped", r.Skipped))
}

// Synthesize returns a deterministic weekday series covering span up to the
// anchor day. The first point is the start of the span and the last point
// is the anchor's day and registered value exactly; earlier points drift
// smoothly going back in time. Every generated entry is flagged synthetic
// and carries no eligible figure.
func Synthesize(anchor domain.HistoryEntry, span time.Duration) []domain.HistoryEntry {
	end := domain.Day(anchor.Date)
	start := domain.Day(end.Add(-span))

	var reversed []domain.HistoryEntry
	value := anchor.Registered
	step := 0
	for d := end; !d.Before(start); d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			if !d.Equal(end) && !d.Equal(start) {
				continue
			}
		}
		if step > 0 {
			value *= 1 + syntheticDrift(step)
		}
		reversed = append(reversed, domain.HistoryEntry{
			Date:       d,
			Registered: math.Round(value),
			Synthetic:  true,
		})
		step++
	}
	reversed[0].Registered = anchor.Registered

	out := make([]domain.HistoryEntry, len(reversed))
	for i, e := range reversed {
		out[len(reversed)-1-i] = e
	}
	return out
}

// syntheticDrift is the relative change between consecutive weekdays,
// a slow trend plus a bounded oscillation.
func syntheticDrift(step int) float64 {
	return 0.0008 + 0.003*math.Sin(float64(step)/11.0)
}
