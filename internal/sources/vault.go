package sources

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"silverpulse/internal/config"
	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

// VaultAdapter reads SHFE warehouse warrant stocks for silver. The exchange
// publishes one file per trading day, so the adapter walks back from today
// until it finds one.
type VaultAdapter struct {
	baseURL  string
	daysBack int
	client   *resty.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewVaultAdapter creates the vault holdings adapter
func NewVaultAdapter(cfg config.SourcesConfig, logger *slog.Logger) *VaultAdapter {
	client := newClient(cfg.UserAgent, cfg.VaultTimeout).
		SetHeader("Referer", "https://www.shfe.com.cn/").
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01")
	return &VaultAdapter{
		baseURL:  cfg.VaultBaseURL,
		daysBack: cfg.VaultDaysBack,
		client:   client,
		logger:   infrastructure.WithComponent(logger, "source").With(slog.String("source", IDVaultHoldings)),
		now:      time.Now,
	}
}

func (a *VaultAdapter) ID() string              { return IDVaultHoldings }
func (a *VaultAdapter) Kind() domain.MetricKind { return domain.MetricVaultHoldings }

// Fetch implements Adapter
func (a *VaultAdapter) Fetch(ctx context.Context) (*domain.FetchResult, error) {
	today := a.now()
	var lastErr error

	for i := 0; i < a.daysBack; i++ {
		if err := ctx.Err(); err != nil {
			return nil, Unavailable(a.ID(), apperrors.NewTransportError("vault lookup cancelled", err))
		}

		day := today.AddDate(0, 0, -i)
		url := a.baseURL + day.Format("20060102") + "dailystock.dat"

		body, err := execute(ctx, a.client.R(), http.MethodGet, url)
		if err != nil {
			lastErr = err
			continue
		}

		kg, strategy, err := ParseVaultStock(body)
		if err != nil {
			lastErr = err
			continue
		}

		a.logger.DebugContext(ctx, "Vault stock found",
			slog.String("date", day.Format("20060102")),
			slog.Float64("kg", kg),
			slog.String("strategy", strategy))

		m := domain.NewExternalMetric(a.Kind(), kg*TroyOuncesPerKilogram, a.ID(), a.now())
		m.AsOf = domain.Day(day)
		m.LocalValue = &kg
		m.LocalUnit = "kg"
		return metricResult(a.ID(), m, strategy), nil
	}

	notFound := apperrors.NewFieldNotFoundError("silver vault stock")
	notFound.Cause = lastErr
	return nil, Unavailable(a.ID(), notFound.WithContext("days_back", a.daysBack))
}

// ParseVaultStock returns silver warrant weight in kg from a dailystock
// payload. The exchange total row wins; otherwise warehouse rows are summed,
// skipping subtotals.
func ParseVaultStock(body []byte) (float64, string, error) {
	payload, err := decodeJSON(body)
	if err != nil {
		return 0, "", err
	}

	raw, ok := lookupFold(payload, "o_cursor")
	if !ok {
		return 0, "", apperrors.NewDecodeError("o_cursor missing", nil)
	}
	items, ok := raw.([]any)
	if !ok {
		return 0, "", apperrors.NewDecodeError("o_cursor is not a list", nil)
	}

	var sum float64
	summed := 0
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		row := upperKeys(obj)
		if !isSilverRow(row) {
			continue
		}

		weight, ok := toFloat(row["WRTWGHTS"])
		if !ok {
			continue
		}

		wh := toString(row["WHABBRNAME"])
		region := toString(row["REGNAME"])
		switch {
		case isSubtotalLabel(wh) || isSubtotalLabel(region):
			continue
		case isTotalLabel(wh) || (wh == "" && isTotalLabel(region)):
			return weight, "total_row", nil
		default:
			sum += weight
			summed++
		}
	}

	if summed == 0 {
		return 0, "", apperrors.NewFieldNotFoundError("silver rows")
	}
	return sum, "summed_rows", nil
}

func upperKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func isSilverRow(row map[string]any) bool {
	product := strings.ToLower(toString(row["PRODUCTID"]))
	if strings.HasPrefix(product, "ag") || product == "silver" {
		return true
	}
	return strings.Contains(toString(row["VARNAME"]), "白银")
}

func isTotalLabel(s string) bool {
	return strings.Contains(s, "总计") || strings.Contains(strings.ToLower(s), "total")
}

func isSubtotalLabel(s string) bool {
	return strings.Contains(s, "小计") || strings.Contains(strings.ToLower(s), "subtotal")
}
