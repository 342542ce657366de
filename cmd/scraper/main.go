// Command scraper runs a single refresh cycle against every enabled source,
// prints the resulting dashboard and optionally exports the history CSV.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"silverpulse/internal/config"
	"silverpulse/pkg/contracts"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &refreshOptions{}

	root := &cobra.Command{
		Use:          "scraper",
		Short:        "Fetch every enabled source once and print the dashboard",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runRefresh(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	root.Flags().BoolVar(&opts.Force, "force", false, "Bypass the source cache")
	root.Flags().BoolVar(&opts.JSON, "json", false, "Print the full snapshot as JSON")
	root.Flags().StringVar(&opts.ExportPath, "export", "", "Write the history CSV to this path after refreshing (- for stdout)")
	root.Flags().StringVar(&opts.From, "from", "", "Export range start (YYYY-MM-DD)")
	root.Flags().StringVar(&opts.To, "to", "", "Export range end (YYYY-MM-DD)")

	root.AddCommand(newExportCmd(), newVersionCmd())
	return root
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored history as CSV without refreshing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runExport(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Path, "out", "o", "-", "Output path (- for stdout)")
	cmd.Flags().StringVar(&opts.From, "from", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Range end (YYYY-MM-DD)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := contracts.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, %s)\n", contracts.GetVersionString(), info.GitCommit, info.GoVersion)
		},
	}
}
