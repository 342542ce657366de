package sources

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"

	"silverpulse/internal/config"
	"silverpulse/internal/dataprocessing"
	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

// Plausible bounds for ounces held by the trust
const (
	MinTrustOunces = 100_000_000
	MaxTrustOunces = 1_000_000_000
)

// PageFetcher returns the HTML of a page
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// HTTPPageFetcher fetches static HTML
type HTTPPageFetcher struct {
	client *resty.Client
}

// FetchPage implements PageFetcher
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	return execute(ctx, f.client.R().SetHeader("Accept", "text/html"), http.MethodGet, url)
}

// BrowserPageFetcher renders the page in headless Chrome before reading the
// DOM, for pages that fill their figures in with JavaScript.
type BrowserPageFetcher struct {
	UserAgent string
}

// FetchPage implements PageFetcher
func (f *BrowserPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.UserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, apperrors.NewTransportError("headless render of "+url+" failed", err)
	}
	return []byte(html), nil
}

// ETFAdapter scrapes ounces held from the iShares Silver Trust product page
type ETFAdapter struct {
	url     string
	fetcher PageFetcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewETFAdapter creates the ETF holdings adapter
func NewETFAdapter(cfg config.SourcesConfig, logger *slog.Logger) *ETFAdapter {
	var fetcher PageFetcher = &HTTPPageFetcher{client: newClient(cfg.UserAgent, cfg.PageTimeout)}
	if cfg.ETFRenderJS {
		fetcher = &BrowserPageFetcher{UserAgent: cfg.UserAgent}
	}
	return &ETFAdapter{
		url:     cfg.ETFURL,
		fetcher: fetcher,
		logger:  infrastructure.WithComponent(logger, "source").With(slog.String("source", IDSLVHoldings)),
		now:     time.Now,
	}
}

func (a *ETFAdapter) ID() string              { return IDSLVHoldings }
func (a *ETFAdapter) Kind() domain.MetricKind { return domain.MetricSLVHoldings }

// Fetch downloads the product page and extracts ounces in trust
func (a *ETFAdapter) Fetch(ctx context.Context) (*domain.FetchResult, error) {
	page, err := a.fetcher.FetchPage(ctx, a.url)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}

	ounces, strategy, err := ParseTrustOunces(page)
	if err != nil {
		return nil, Unavailable(a.ID(), err)
	}

	a.logger.DebugContext(ctx, "Trust holdings extracted",
		slog.Float64("ounces", ounces),
		slog.String("strategy", strategy))

	m := domain.NewExternalMetric(a.Kind(), ounces, a.ID(), a.now())
	return metricResult(a.ID(), m, strategy), nil
}

// Structural lookups, most specific first
var trustSelectors = []string{
	`.col-ouncesInTrust .data`,
	`[data-field="ouncesInTrust"]`,
	`#ouncesInTrust`,
}

var trustOuncesPattern = regexp.MustCompile(`(?i)ounces\s+in\s+(?:the\s+)?trust[^0-9]{0,80}?([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?|[0-9]+(?:\.[0-9]+)?)`)

// ParseTrustOunces returns the ounces-in-trust figure and the strategy that
// found it: a CSS selector, a labelled data item, or a regex over the page text.
func ParseTrustOunces(page []byte) (float64, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return 0, "", apperrors.NewDecodeError("failed to parse ETF page", err)
	}

	var candidates []float64
	var strategies []string
	add := func(text, strategy string) {
		if v, ok := dataprocessing.ParseNumber(text); ok {
			candidates = append(candidates, v)
			strategies = append(strategies, strategy)
		}
	}

	for _, sel := range trustSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(s.Text(), "selector")
		})
	}

	doc.Find(".product-data-item").Each(func(_ int, item *goquery.Selection) {
		label := strings.ToLower(item.Find(".caption").Text())
		if strings.Contains(label, "ounces in trust") {
			add(item.Find(".data").Text(), "data_item")
		}
	})

	flat := strings.Join(strings.Fields(doc.Text()), " ")
	for _, m := range trustOuncesPattern.FindAllStringSubmatch(flat, -1) {
		add(m[1], "regex")
	}

	if len(candidates) == 0 {
		return 0, "", apperrors.NewFieldNotFoundError("ounces in trust")
	}

	for i, v := range candidates {
		if v >= MinTrustOunces && v <= MaxTrustOunces {
			return v, strategies[i], nil
		}
	}
	return 0, "", apperrors.NewOutOfRangeError("ounces in trust", candidates[0], MinTrustOunces, MaxTrustOunces)
}
