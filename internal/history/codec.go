package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"silverpulse/internal/dataprocessing"
	"silverpulse/internal/exporter"
	"silverpulse/pkg/contracts/domain"
)

// Headers is the column layout written by the store. Files with only the
// first two or three columns are read as well.
var Headers = []string{"Date", "Registered", "Eligible", "Source"}

// Source column values
const (
	SourceReported  = "reported"
	SourceSynthetic = "synthetic"
)

var dateLayouts = []string{
	domain.HistoryDateLayout,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", s)
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")), "date")
}

// rowError describes one skipped line
type rowError struct {
	Line int
	Err  error
}

func (e rowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// decodeEntries reads history rows from r. Malformed rows are returned as
// rowErrors and skipped; a structural CSV error fails the whole read.
func decodeEntries(r io.Reader) ([]domain.HistoryEntry, []rowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV records: %w", err)
	}

	var (
		entries []domain.HistoryEntry
		skipped []rowError
	)
	for i, record := range records {
		if i == 0 && isHeaderRow(record) {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		e, err := parseRecord(record)
		if err != nil {
			skipped = append(skipped, rowError{Line: i + 1, Err: err})
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped, nil
}

func parseRecord(record []string) (domain.HistoryEntry, error) {
	if len(record) < 2 {
		return domain.HistoryEntry{}, fmt.Errorf("expected at least 2 columns, got %d", len(record))
	}

	date, err := parseDate(record[0])
	if err != nil {
		return domain.HistoryEntry{}, err
	}

	registered, ok := dataprocessing.ParseNumber(record[1])
	if !ok {
		return domain.HistoryEntry{}, fmt.Errorf("registered %q is not numeric", record[1])
	}
	if registered < 0 {
		return domain.HistoryEntry{}, errors.New("registered is negative")
	}

	e := domain.HistoryEntry{Date: date, Registered: registered}

	if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
		eligible, ok := dataprocessing.ParseNumber(record[2])
		if !ok || eligible < 0 {
			return domain.HistoryEntry{}, fmt.Errorf("eligible %q is invalid", record[2])
		}
		e.Eligible = &eligible
	}

	if len(record) > 3 {
		e.Synthetic = strings.EqualFold(strings.TrimSpace(record[3]), SourceSynthetic)
	}
	return e, nil
}

func encodeEntry(e domain.HistoryEntry) []string {
	source := SourceReported
	if e.Synthetic {
		source = SourceSynthetic
	}
	return []string{
		e.Key(),
		exporter.FormatFloat(e.Registered),
		exporter.FormatOptionalFloat(e.Eligible),
		source,
	}
}

func encodeEntries(entries []domain.HistoryEntry) [][]string {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, encodeEntry(e))
	}
	return records
}
