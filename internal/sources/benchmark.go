package sources

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"silverpulse/internal/config"
	"silverpulse/internal/dataprocessing"
	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

// BenchmarkContractMarker selects silver benchmark rows in the SGE table
const BenchmarkContractMarker = "SHAG"

// BenchmarkRow is one daily fix from the regional benchmark table
type BenchmarkRow struct {
	Date      time.Time
	RawDate   string
	Contract  string
	Morning   *float64
	Afternoon *float64
}

// Price returns the afternoon fix, else the morning fix
func (r BenchmarkRow) Price() (float64, bool) {
	if r.Afternoon != nil {
		return *r.Afternoon, true
	}
	if r.Morning != nil {
		return *r.Morning, true
	}
	return 0, false
}

// BenchmarkAdapter reads the Shanghai silver benchmark (CNY/kg) and converts
// it to USD/oz with a live FX rate, falling back to a configured rate.
type BenchmarkAdapter struct {
	url          string
	fxURL        string
	windowDays   int
	fallbackRate float64
	client       *resty.Client
	logger       *slog.Logger
	now          func() time.Time
}

// NewBenchmarkAdapter creates the regional benchmark adapter
func NewBenchmarkAdapter(cfg config.SourcesConfig, logger *slog.Logger) *BenchmarkAdapter {
	return &BenchmarkAdapter{
		url:          cfg.BenchmarkURL,
		fxURL:        cfg.FXURL,
		windowDays:   cfg.BenchmarkWindowDays,
		fallbackRate: cfg.FXFallbackRate,
		client:       newClient(cfg.UserAgent, cfg.QuoteTimeout),
		logger:       infrastructure.WithComponent(logger, "source").With(slog.String("source", IDRegionalBenchmark)),
		now:          time.Now,
	}
}

func (a *BenchmarkAdapter) ID() string              { return IDRegionalBenchmark }
func (a *BenchmarkAdapter) Kind() domain.MetricKind { return domain.MetricRegionalBenchmark }

// Fetch implements Adapter
func (a *BenchmarkAdapter) Fetch(ctx context.Context) (*domain.FetchResult, error) {
	end := a.now()
	start := end.AddDate(0, 0, -a.windowDays)

	req := a.client.R().
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetFormData(map[string]string{
			"start": start.Format(domain.HistoryDateLayout),
			"end":   end.Format(domain.HistoryDateLayout),
		})
	body, err := execute(ctx, req, http.MethodPost, a.url)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}

	rows, err := ParseBenchmarkRows(body)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}
	latest, ok := latestPricedRow(rows)
	if !ok {
		return nil, Unavailable(a.ID(), apperrors.NewFieldNotFoundError(BenchmarkContractMarker+" benchmark price"))
	}
	cnyPerKg, _ := latest.Price()

	rate, fallback := a.fxRate(ctx)
	usdPerOz := cnyPerKg / rate / TroyOuncesPerKilogram

	m := domain.NewExternalMetric(a.Kind(), usdPerOz, a.ID(), a.now())
	m.AsOf = latest.Date
	m.LocalValue = &cnyPerKg
	m.LocalUnit = "CNY/kg"
	m.FXRate = &rate
	m.FXFallback = fallback

	strategy := "live_fx"
	if fallback {
		strategy = "fallback_fx"
	}
	return metricResult(a.ID(), m, strategy), nil
}

// ParseBenchmarkRows parses the HTML fragment of table rows returned by the
// benchmark endpoint, keeping silver contract rows.
func ParseBenchmarkRows(body []byte) ([]BenchmarkRow, error) {
	// bare <tr> fragments are dropped by the HTML parser outside a table
	if !bytes.Contains(bytes.ToLower(body), []byte("<table")) {
		body = append(append([]byte("<table>"), body...), []byte("</table>")...)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to parse benchmark table", err)
	}

	var rows []BenchmarkRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.HasClass("title") {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		text := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }

		contract := text(1)
		if !strings.Contains(strings.ToUpper(contract), BenchmarkContractMarker) {
			return
		}

		row := BenchmarkRow{RawDate: text(0), Contract: contract}
		row.Date, _ = parseBenchmarkDate(row.RawDate)
		if v, ok := dataprocessing.ParseNumber(text(2)); ok && v > 0 {
			row.Morning = &v
		}
		if v, ok := dataprocessing.ParseNumber(text(3)); ok && v > 0 {
			row.Afternoon = &v
		}
		rows = append(rows, row)
	})
	return rows, nil
}

var benchmarkDateLayouts = []string{"2006-01-02", "20060102", "2006/01/02"}

func parseBenchmarkDate(s string) (time.Time, bool) {
	for _, layout := range benchmarkDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// latestPricedRow picks the most recent dated row that has a price. Rows
// without a parseable date only win when no row is dated.
func latestPricedRow(rows []BenchmarkRow) (BenchmarkRow, bool) {
	var best BenchmarkRow
	found := false
	for _, r := range rows {
		if _, ok := r.Price(); !ok {
			continue
		}
		if !found || r.Date.After(best.Date) {
			best, found = r, true
		}
	}
	return best, found
}

// fxRate returns CNY per USD and whether the fallback rate was used
func (a *BenchmarkAdapter) fxRate(ctx context.Context) (float64, bool) {
	if a.fxURL == "" {
		return a.fallbackRate, true
	}

	body, err := execute(ctx, a.client.R().SetHeader("Accept", "application/json"), http.MethodGet, a.fxURL)
	if err == nil {
		var payload map[string]any
		if payload, err = decodeJSON(body); err == nil {
			if raw, ok := lookupPath(payload, "rates", "CNY"); ok {
				if rate, ok := toFloat(raw); ok && rate > 0 {
					return rate, false
				}
			}
			err = apperrors.NewFieldNotFoundError("rates.CNY")
		}
	}

	a.logger.WarnContext(ctx, "FX lookup failed, using fallback rate",
		slog.Float64("fallback_rate", a.fallbackRate),
		slog.String("error", err.Error()))
	return a.fallbackRate, true
}
