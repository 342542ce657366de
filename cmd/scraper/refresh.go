package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"silverpulse/internal/app"
	"silverpulse/internal/config"
	"silverpulse/internal/services"
	"silverpulse/pkg/contracts/domain"
)

type refreshOptions struct {
	Force      bool
	JSON       bool
	ExportPath string
	From       string
	To         string
}

type exportOptions struct {
	Path string
	From string
	To   string
}

// runRefresh performs one refresh cycle and writes the summary to out
func runRefresh(ctx context.Context, cfg *config.Config, opts *refreshOptions, out io.Writer) (err error) {
	from, to, err := parseRange(opts.From, opts.To)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, application.Close(context.Background()))
	}()

	refreshCtx, cancel := context.WithTimeout(ctx, cfg.Server.RefreshTimeout)
	defer cancel()

	start := time.Now()
	state, err := application.DashboardService.Refresh(refreshCtx, opts.Force, services.TriggerCLI)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	application.Logger.Info("Refresh finished",
		slog.String("cycle_id", state.CycleID),
		slog.Duration("duration", time.Since(start)))

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return err
		}
	} else {
		printSummary(out, state)
	}

	if opts.ExportPath != "" {
		return writeExport(application.DashboardService, opts.ExportPath, from, to, out)
	}
	return nil
}

// runExport writes stored history without touching any source
func runExport(ctx context.Context, cfg *config.Config, opts *exportOptions, out io.Writer) (err error) {
	from, to, err := parseRange(opts.From, opts.To)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, application.Close(ctx))
	}()

	return writeExport(application.DashboardService, opts.Path, from, to, out)
}

func writeExport(svc *services.DashboardService, path string, from, to time.Time, stdout io.Writer) error {
	if path == "-" {
		return svc.ExportHistory(stdout, from, to)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := svc.ExportHistory(f, from, to); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(domain.HistoryDateLayout, from); err != nil {
			return start, end, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if end, err = time.Parse(domain.HistoryDateLayout, to); err != nil {
			return start, end, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", to)
		}
	}
	return start, end, nil
}

// printSummary renders the snapshot as an aligned text report
func printSummary(out io.Writer, state *domain.AppState) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "%s refresh %s\t%s\n", config.AppName, state.CycleID, state.RefreshedAt.Format(time.RFC3339))
	fmt.Fprintln(tw)

	if inv := state.Inventory; inv != nil {
		stale := ""
		if state.InventoryStale {
			stale = " (cached)"
		}
		fmt.Fprintf(tw, "Report date\t%s%s\n", inv.AsOf.Format(domain.HistoryDateLayout), stale)
		fmt.Fprintf(tw, "Registered\t%s oz\n", formatOunces(inv.Registered))
		fmt.Fprintf(tw, "Eligible\t%s oz\n", formatOunces(inv.Eligible))
		fmt.Fprintf(tw, "Total\t%s oz\n", formatOunces(inv.Total))
	} else {
		fmt.Fprintf(tw, "Inventory\tunavailable: %s\n", state.InventoryError)
	}
	fmt.Fprintln(tw)

	ind := state.Indicators
	fmt.Fprintf(tw, "Squeeze tier\t%s\t%s\n", ind.SqueezeTier.Tier, ind.SqueezeTier.Label)
	fmt.Fprintf(tw, "Registered ratio\t%s\n", ind.RegisteredRatio)
	fmt.Fprintf(tw, "Withdrawal trend\t%s\n", ind.WithdrawalTrend)
	fmt.Fprintf(tw, "OI / registered\t%s\n", ind.OIToRegisteredRatio)

	if len(state.Metrics) == 0 {
		return
	}
	fmt.Fprintln(tw)

	kinds := make([]string, 0, len(state.Metrics))
	for k := range state.Metrics {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		m := state.Metrics[domain.MetricKind(k)]
		detail := m.Display
		if !m.Available && m.Reason != "" {
			detail = m.Reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, availability(m), detail)
	}
}

func availability(m domain.MetricStatus) string {
	switch {
	case !m.Available:
		return "unavailable"
	case m.Cached:
		return "cached"
	default:
		return "ok"
	}
}

// formatOunces renders whole ounces with thousands separators
func formatOunces(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
