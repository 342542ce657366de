package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"silverpulse/internal/config"
	"silverpulse/internal/dataprocessing"
	"silverpulse/internal/exporter"
	"silverpulse/internal/history"
	"silverpulse/pkg/contracts/domain"
)

type options struct {
	In          string
	JSON        bool
	TableOut    string
	Record      bool
	HistoryFile string
}

// run extracts opts.In and reports the result to out
func run(opts options, out io.Writer, logger *slog.Logger) error {
	if !config.FileExists(opts.In) {
		return fmt.Errorf("report not found at %s; run the scraper first or pass -in", opts.In)
	}

	extraction, err := dataprocessing.NewReportProcessor(logger).ProcessFile(opts.In)
	if err != nil {
		return err
	}
	rec := extraction.Record

	if opts.TableOut != "" && extraction.Table != nil {
		err := exporter.NewCSVWriter(logger).WriteCSV(opts.TableOut, exporter.WriteOptions{
			Headers:   extraction.Table.Columns,
			Records:   extraction.Table.Rows,
			BOMPrefix: true,
		})
		if err != nil {
			return fmt.Errorf("failed to write table: %w", err)
		}
		logger.Info("Depository table written",
			slog.String("path", opts.TableOut),
			slog.Int("rows", len(extraction.Table.Rows)))
	}

	if opts.Record {
		if err := recordEntry(opts.HistoryFile, rec, logger); err != nil {
			return err
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	printRecord(out, rec, extraction.HeaderIndex)
	return nil
}

func recordEntry(path string, rec *domain.NormalizedRecord, logger *slog.Logger) error {
	store, err := history.Open(path, logger)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	eligible := rec.Eligible
	entry := domain.HistoryEntry{
		Date:       domain.Day(rec.AsOf),
		Registered: rec.Registered,
		Eligible:   &eligible,
	}
	if err := store.Upsert(entry); err != nil {
		return fmt.Errorf("failed to record %s: %w", entry.Key(), err)
	}
	logger.Info("History entry recorded", slog.String("date", entry.Key()))
	return nil
}

func printRecord(out io.Writer, rec *domain.NormalizedRecord, headerRow int) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Report date\t%s\n", rec.AsOf.Format(domain.HistoryDateLayout))
	fmt.Fprintf(tw, "Registered\t%s\n", exporter.FormatFloat(rec.Registered))
	fmt.Fprintf(tw, "Eligible\t%s\n", exporter.FormatFloat(rec.Eligible))
	fmt.Fprintf(tw, "Total\t%s\n", exporter.FormatFloat(rec.Total))
	fmt.Fprintf(tw, "Header\trow %d (%s)\n", headerRow, rec.HeaderStrategy)
	fmt.Fprintf(tw, "Totals\t%s\n", rec.TotalsStrategy)

	if len(rec.WarehouseBreakdown) == 0 {
		return
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DEPOSITORY\tREGISTERED\tELIGIBLE")
	for _, row := range rec.WarehouseBreakdown {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Name,
			exporter.FormatFloat(row.Registered), exporter.FormatFloat(row.Eligible))
	}
}
