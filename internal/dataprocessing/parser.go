package dataprocessing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "silverpulse/internal/errors"
	"silverpulse/pkg/contracts/domain"
)

// ErrNotFound is wrapped by every extraction failure where the report parsed
// but the aggregate totals could not be located.
var ErrNotFound = errors.New("aggregate totals not found")

// Header strategies, in the order they are tried
const (
	HeaderMarkerPair = "marker_pair"
	HeaderDepository = "depository"
	HeaderFirstRow   = "first_row"
)

// Totals strategies, in the order they are tried
const (
	TotalsLabelled   = "labelled_totals"
	TotalsKeyword    = "total_row_keyword"
	TotalsPositional = "total_row_positional"
)

// maxWeakHeaderLen excludes narrative and title rows that happen to mention
// the weak marker.
const maxWeakHeaderLen = 120

var validate = validator.New()

// Extraction is the result of a successful Extract
type Extraction struct {
	Record      *domain.NormalizedRecord
	Table       *domain.ReportTable
	HeaderIndex int
}

type headerMatcher struct {
	name  string
	match func(text string) bool
}

var headerMatchers = []headerMatcher{
	{HeaderMarkerPair, func(text string) bool {
		return strings.Contains(text, "RECEIVED") && strings.Contains(text, "WITHDRAWN")
	}},
	{HeaderDepository, func(text string) bool {
		return strings.Contains(text, "DEPOSITORY") && len(text) <= maxWeakHeaderLen
	}},
	{HeaderFirstRow, func(text string) bool {
		return text != ""
	}},
}

// locateHeader returns the header row index and the matcher that found it
func locateHeader(g Grid) (int, string) {
	for _, m := range headerMatchers {
		for i, row := range g {
			if m.match(strings.ToUpper(rowText(row))) {
				return i, m.name
			}
		}
	}
	return -1, ""
}

// normalizeHeader forward-fills blank header cells from the left and makes
// names unique by suffixing _2, _3, ... in order of appearance.
func normalizeHeader(row []string) []string {
	filled := make([]string, len(row))
	last := ""
	for j, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = last
		}
		if cell == "" {
			cell = "Unnamed"
		}
		filled[j] = cell
		last = cell
	}

	seen := make(map[string]int, len(filled))
	used := make(map[string]bool, len(filled))
	out := make([]string, len(filled))
	for j, name := range filled {
		seen[name]++
		candidate := name
		if seen[name] > 1 {
			candidate = fmt.Sprintf("%s_%d", name, seen[name])
		}
		for used[candidate] {
			seen[name]++
			candidate = fmt.Sprintf("%s_%d", name, seen[name])
		}
		used[candidate] = true
		out[j] = candidate
	}
	return out
}

type totals struct {
	registered float64
	eligible   float64
	strategy   string
}

func findLabelledRow(rows [][]string, label string) []string {
	for _, row := range rows {
		if strings.Contains(strings.ToUpper(firstCell(row)), label) {
			return row
		}
	}
	return nil
}

func labelledTotals(rows [][]string, _ []string) (totals, bool) {
	regRow := findLabelledRow(rows, "TOTAL REGISTERED")
	eligRow := findLabelledRow(rows, "TOTAL ELIGIBLE")
	if regRow == nil || eligRow == nil {
		return totals{}, false
	}
	reg, okReg := lastNumeric(regRow)
	elig, okElig := lastNumeric(eligRow)
	if !okReg || !okElig {
		return totals{}, false
	}
	return totals{reg, elig, TotalsLabelled}, true
}

// pickColumn returns the first column whose name contains any keyword
func pickColumn(columns []string, keywords ...string) int {
	for j, name := range columns {
		upper := strings.ToUpper(name)
		for _, kw := range keywords {
			if strings.Contains(upper, kw) {
				return j
			}
		}
	}
	return -1
}

func cellAt(row []string, j int) string {
	if j < 0 || j >= len(row) {
		return ""
	}
	return row[j]
}

func totalRow(rows [][]string, columns []string) (totals, bool) {
	row := findLabelledRow(rows, "TOTAL")
	if row == nil {
		return totals{}, false
	}

	regCol := pickColumn(columns, "REGISTER", "REG")
	eligCol := pickColumn(columns, "ELIGIBLE", "ELIG")
	if regCol > 0 && eligCol > 0 && regCol != eligCol {
		reg, okReg := ParseNumber(cellAt(row, regCol))
		elig, okElig := ParseNumber(cellAt(row, eligCol))
		if okReg && okElig {
			return totals{reg, elig, TotalsKeyword}, true
		}
	}

	reg, okReg := ParseNumber(cellAt(row, 1))
	elig, okElig := ParseNumber(cellAt(row, 2))
	if !okReg || !okElig {
		return totals{}, false
	}
	return totals{reg, elig, TotalsPositional}, true
}

var totalsMatchers = []func(rows [][]string, columns []string) (totals, bool){
	labelledTotals,
	totalRow,
}

// Extract locates the header row and aggregate totals in a raw report grid.
// It returns an error wrapping ErrNotFound when no aggregate row is found; it
// never returns a zero-filled record.
func Extract(grid Grid) (*Extraction, error) {
	g := grid.Strip()
	if len(g) == 0 {
		return nil, notFound("report is empty")
	}

	headerIdx, headerStrategy := locateHeader(g)
	if headerIdx < 0 {
		return nil, notFound("header row")
	}

	columns := normalizeHeader(g[headerIdx])
	rows := g[headerIdx+1:]

	var found totals
	ok := false
	for _, match := range totalsMatchers {
		if found, ok = match(rows, columns); ok {
			break
		}
	}
	if !ok {
		return nil, notFound("TOTAL REGISTERED / TOTAL ELIGIBLE")
	}

	record := &domain.NormalizedRecord{
		Registered:         found.registered,
		Eligible:           found.eligible,
		Total:              found.registered + found.eligible,
		WarehouseBreakdown: warehouseBreakdown(rows),
		HeaderStrategy:     headerStrategy,
		TotalsStrategy:     found.strategy,
	}
	if asOf, ok := ReportDate(grid); ok {
		record.AsOf = asOf
	}

	if err := validate.Struct(record); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeOutOfRange, "extracted inventory failed validation", err).
			WithContext("registered", found.registered).
			WithContext("eligible", found.eligible)
	}

	tableRows := make([][]string, len(rows))
	for i, row := range rows {
		tableRows[i] = append([]string(nil), row...)
	}

	return &Extraction{
		Record:      record,
		Table:       &domain.ReportTable{Columns: columns, Rows: tableRows},
		HeaderIndex: headerIdx,
	}, nil
}

func notFound(field string) error {
	err := apperrors.NewFieldNotFoundError(field)
	err.Cause = ErrNotFound
	return err
}

// warehouseBreakdown walks depository blocks: a name row followed by
// Registered and Eligible rows, valued from the rightmost numeric column.
func warehouseBreakdown(rows [][]string) []domain.WarehouseRow {
	var out []domain.WarehouseRow
	var current *domain.WarehouseRow
	seenValue := false

	flush := func() {
		if current != nil && seenValue {
			out = append(out, *current)
		}
		current = nil
		seenValue = false
	}

	for _, row := range rows {
		label := firstCell(row)
		upper := strings.ToUpper(label)

		switch {
		case label == "":
			continue
		case strings.HasPrefix(upper, "TOTAL ") || strings.HasPrefix(upper, "COMBINED"):
			flush()
		case upper == "REGISTERED" || upper == "ELIGIBLE":
			if current == nil {
				continue
			}
			v, ok := lastNumeric(row[1:])
			if !ok {
				continue
			}
			if upper == "REGISTERED" {
				current.Registered = v
			} else {
				current.Eligible = v
			}
			seenValue = true
		case upper == "TOTAL" || upper == "PLEDGED":
			continue
		default:
			if hasNumeric(row[1:]) {
				continue
			}
			flush()
			current = &domain.WarehouseRow{Name: label}
		}
	}
	flush()

	return out
}

var reportDatePattern = regexp.MustCompile(`(?i)(report|activity)\s+date\s*:?\s*([0-9]{1,4}[/-][0-9]{1,2}[/-][0-9]{1,4})`)

var reportDateLayouts = []string{"1/2/2006", "01/02/2006", "2006-01-02", "2006/01/02"}

// ReportDate finds the "Report Date:" cell, falling back to "Activity Date:".
func ReportDate(grid Grid) (time.Time, bool) {
	var activity time.Time
	haveActivity := false

	for _, row := range grid {
		for _, cell := range row {
			m := reportDatePattern.FindStringSubmatch(cell)
			if m == nil {
				continue
			}
			t, ok := parseReportDate(m[2])
			if !ok {
				continue
			}
			if strings.EqualFold(m[1], "report") {
				return t, true
			}
			if !haveActivity {
				activity, haveActivity = t, true
			}
		}
	}
	return activity, haveActivity
}

func parseReportDate(s string) (time.Time, bool) {
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
