// Command processor re-runs extraction against a warehouse report on disk,
// by default the copy cached by the last successful download.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"

	"silverpulse/internal/config"
	"silverpulse/internal/infrastructure"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC RECOVERED: %v\n%s\n", r, debug.Stack())
			os.Exit(2)
		}
	}()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Error loading .env file", slog.String("error", err.Error()))
	}

	var opts options
	flag.StringVar(&opts.In, "in", "", "Report file to extract (defaults to the cached report)")
	flag.BoolVar(&opts.JSON, "json", false, "Print the extracted record as JSON")
	flag.StringVar(&opts.TableOut, "table", "", "Write the depository table as CSV to this path")
	flag.BoolVar(&opts.Record, "record", false, "Upsert the extracted totals into the history file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		slog.Error("Failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging, paths.LogFile)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if opts.In == "" {
		opts.In = paths.ReportCacheFile
	}
	opts.HistoryFile = paths.HistoryFile

	logger.Info("Starting report extraction",
		slog.String("input", opts.In),
		slog.Bool("record", opts.Record))

	if err := run(opts, os.Stdout, logger); err != nil {
		logger.Error("Extraction failed", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
