package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
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

// QuoteAdapter reads one named field of a futures quote. It queries the JSON
// quote feed first and falls back to the HTML quote page.
type QuoteAdapter struct {
	id           string
	kind         domain.MetricKind
	field        string
	pageSelector string

	quoteURL string
	pageURL  string
	ticker   string
	client   *resty.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewOpenInterestAdapter reads open interest in contracts
func NewOpenInterestAdapter(cfg config.SourcesConfig, logger *slog.Logger) *QuoteAdapter {
	return newQuoteAdapter(cfg, logger, IDOpenInterest, domain.MetricOpenInterest,
		"openInterest", `td[data-test="OPEN_INTEREST-value"]`)
}

// NewSpotPriceAdapter reads the last traded price in USD/oz
func NewSpotPriceAdapter(cfg config.SourcesConfig, logger *slog.Logger) *QuoteAdapter {
	return newQuoteAdapter(cfg, logger, IDSpotPrice, domain.MetricSpotPrice,
		"regularMarketPrice", `fin-streamer[data-field="regularMarketPrice"]`)
}

func newQuoteAdapter(cfg config.SourcesConfig, logger *slog.Logger, id string, kind domain.MetricKind, field, selector string) *QuoteAdapter {
	return &QuoteAdapter{
		id:           id,
		kind:         kind,
		field:        field,
		pageSelector: selector,
		quoteURL:     cfg.QuoteURL,
		pageURL:      cfg.QuotePageURL,
		ticker:       cfg.Ticker,
		client:       newClient(cfg.UserAgent, cfg.QuoteTimeout),
		logger:       infrastructure.WithComponent(logger, "source").With(slog.String("source", id)),
		now:          time.Now,
	}
}

func (a *QuoteAdapter) ID() string              { return a.id }
func (a *QuoteAdapter) Kind() domain.MetricKind { return a.kind }

// Fetch implements Adapter
func (a *QuoteAdapter) Fetch(ctx context.Context) (*domain.FetchResult, error) {
	value, asOf, jsonErr := a.fetchJSON(ctx)
	strategy := "json"

	if jsonErr != nil && a.pageURL != "" {
		a.logger.DebugContext(ctx, "Quote feed failed, trying quote page",
			slog.String("error", jsonErr.Error()))

		var pageErr error
		value, pageErr = a.fetchPage(ctx)
		if pageErr != nil {
			return nil, Unavailable(a.ID(), errors.Join(jsonErr, pageErr))
		}
		strategy = "html"
		asOf = time.Time{}
	} else if jsonErr != nil {
		return nil, Unavailable(a.ID(), jsonErr)
	}

	if value < 0 {
		return nil, Unavailable(a.ID(), apperrors.NewAppError(apperrors.ErrTypeOutOfRange,
			fmt.Sprintf("%s is negative: %v", a.field, value), nil))
	}

	m := domain.NewExternalMetric(a.kind, value, a.ID(), a.now())
	m.AsOf = asOf
	return metricResult(a.ID(), m, strategy), nil
}

func (a *QuoteAdapter) fetchJSON(ctx context.Context) (float64, time.Time, error) {
	req := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParam("symbols", a.ticker)
	body, err := execute(ctx, req, http.MethodGet, a.quoteURL)
	if err != nil {
		return 0, time.Time{}, err
	}
	return ParseQuoteField(body, a.field)
}

// ParseQuoteField reads field from the first quote of a quoteResponse
// payload. Keys are matched case-insensitively. A missing or null field is
// FieldNotFound, never zero.
func ParseQuoteField(body []byte, field string) (float64, time.Time, error) {
	payload, err := decodeJSON(body)
	if err != nil {
		return 0, time.Time{}, err
	}

	results, ok := lookupPath(payload, "quoteResponse", "result")
	if !ok {
		return 0, time.Time{}, apperrors.NewDecodeError("quoteResponse.result missing", nil)
	}
	list, ok := results.([]any)
	if !ok || len(list) == 0 {
		return 0, time.Time{}, apperrors.NewFieldNotFoundError("quote result")
	}
	quote, ok := list[0].(map[string]any)
	if !ok {
		return 0, time.Time{}, apperrors.NewDecodeError("quote result is not an object", nil)
	}

	raw, ok := lookupFold(quote, field)
	if !ok || raw == nil {
		return 0, time.Time{}, apperrors.NewFieldNotFoundError(field)
	}
	value, ok := toFloat(raw)
	if !ok {
		return 0, time.Time{}, apperrors.NewDecodeError(fmt.Sprintf("%s is not numeric", field), nil).
			WithContext("raw", raw)
	}

	var asOf time.Time
	if ts, ok := lookupFold(quote, "regularMarketTime"); ok {
		if secs, ok := toFloat(ts); ok && secs > 0 {
			asOf = time.Unix(int64(secs), 0).UTC()
		}
	}
	return value, asOf, nil
}

func (a *QuoteAdapter) fetchPage(ctx context.Context) (float64, error) {
	url := a.pageURL
	if strings.Contains(url, "%s") {
		url = fmt.Sprintf(url, a.ticker)
	}
	body, err := execute(ctx, a.client.R().SetHeader("Accept", "text/html"), http.MethodGet, url)
	if err != nil {
		return 0, err
	}
	return parsePageValue(body, a.pageSelector, a.field)
}

func parsePageValue(body []byte, selector, field string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, apperrors.NewDecodeError("failed to parse quote page", err)
	}

	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return 0, apperrors.NewFieldNotFoundError(field)
	}
	v, ok := dataprocessing.ParseNumber(text)
	if !ok {
		return 0, apperrors.NewDecodeError(fmt.Sprintf("%s cell %q is not numeric", field, text), nil)
	}
	return v, nil
}
