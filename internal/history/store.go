package history

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/exporter"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

var validate = validator.New()

// Store is a CSV-backed series with one entry per calendar day. It is the
// only writer of its file.
type Store struct {
	path    string
	writer  *exporter.CSVWriter
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]domain.HistoryEntry
}

// Open loads the history file at path. A missing file yields an empty store;
// malformed rows are skipped with a warning.
func Open(path string, logger *slog.Logger) (*Store, error) {
	logger = infrastructure.WithComponent(logger, "history")
	s := &Store{
		path:    path,
		writer:  exporter.NewCSVWriter(logger),
		logger:  logger,
		entries: make(map[string]domain.HistoryEntry),
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("History file not found, starting empty", slog.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open history file", err).WithContext("path", path)
	}
	defer f.Close()

	entries, skipped, err := decodeEntries(f)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read history file", err).WithContext("path", path)
	}
	for _, rerr := range skipped {
		logger.Warn("Skipping malformed history row",
			slog.Int("line", rerr.Line),
			slog.String("error", rerr.Err.Error()))
	}
	for _, e := range entries {
		s.entries[e.Key()] = e
	}

	logger.Info("History loaded",
		slog.String("path", path),
		slog.Int("entries", len(s.entries)),
		slog.Int("skipped", len(skipped)))
	return s, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Upsert inserts e or replaces the entry of the same day
func (s *Store) Upsert(e domain.HistoryEntry) error {
	return s.UpsertMany([]domain.HistoryEntry{e})
}

// UpsertMany applies entries in order, last write per day wins, and persists
// once. Nothing is applied if any entry is invalid or the write fails.
func (s *Store) UpsertMany(entries []domain.HistoryEntry) error {
	normalized := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date.IsZero() {
			return apperrors.NewAppValidationError("history entry has no date", nil)
		}
		if err := validate.Struct(e); err != nil {
			return apperrors.NewAppValidationError("invalid history entry", err).WithContext("date", e.Key())
		}
		e.Date = domain.Day(e.Date)
		normalized = append(normalized, e)
	}
	if len(normalized) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]*domain.HistoryEntry, len(normalized))
	for _, e := range normalized {
		key := e.Key()
		if _, seen := previous[key]; !seen {
			if old, ok := s.entries[key]; ok {
				previous[key] = &old
			} else {
				previous[key] = nil
			}
		}
		s.entries[key] = e
	}

	if err := s.persistLocked(); err != nil {
		for key, old := range previous {
			if old == nil {
				delete(s.entries, key)
			} else {
				s.entries[key] = *old
			}
		}
		return err
	}
	return nil
}

// fillMissing adds entries only for days not present in the store. It
// returns how many were added and how many were skipped.
func (s *Store) fillMissing(entries []domain.HistoryEntry) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []string
	skipped := 0
	for _, e := range entries {
		e.Date = domain.Day(e.Date)
		key := e.Key()
		if _, exists := s.entries[key]; exists {
			skipped++
			continue
		}
		s.entries[key] = e
		added = append(added, key)
	}
	if len(added) == 0 {
		return 0, skipped, nil
	}

	if err := s.persistLocked(); err != nil {
		for _, key := range added {
			delete(s.entries, key)
		}
		return 0, skipped, err
	}
	return len(added), skipped, nil
}

func (s *Store) persistLocked() error {
	err := s.writer.WriteCSV(s.path, exporter.WriteOptions{
		Headers: Headers,
		Records: encodeEntries(s.sortedLocked()),
	})
	if err != nil {
		return apperrors.NewStorageError("failed to write history file", err).WithContext("path", s.path)
	}
	return nil
}

func (s *Store) sortedLocked() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Eligible != nil {
			v := *e.Eligible
			e.Eligible = &v
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Entries returns a copy of all entries sorted by date
func (s *Store) Entries() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Range returns entries with from <= date <= to. A zero bound is open.
func (s *Store) Range(from, to time.Time) []domain.HistoryEntry {
	all := s.Entries()
	out := all[:0]
	for _, e := range all {
		if !from.IsZero() && e.Date.Before(domain.Day(from)) {
			continue
		}
		if !to.IsZero() && e.Date.After(domain.Day(to)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of stored days
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Latest returns the newest entry, real or synthetic
func (s *Store) Latest() (domain.HistoryEntry, bool) {
	entries := s.Entries()
	if len(entries) == 0 {
		return domain.HistoryEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Span is the time between the oldest and newest entries
func (s *Store) Span() time.Duration {
	entries := s.Entries()
	if len(entries) < 2 {
		return 0
	}
	return entries[len(entries)-1].Date.Sub(entries[0].Date)
}

// Export writes the series as CSV to w. bom prefixes a UTF-8 byte order
// mark for spreadsheet applications.
func (s *Store) Export(w io.Writer, from, to time.Time, bom bool) error {
	return exporter.Encode(w, exporter.WriteOptions{
		Headers:   Headers,
		Records:   encodeEntries(s.Range(from, to)),
		BOMPrefix: bom,
	})
}
