//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-pharma/internal/analytics"
	"github.com/pgEdge/pgedge-pharma/internal/etl"
	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
	"github.com/pgEdge/pgedge-pharma/internal/store"
)

var (
	reportFormat    string
	reportAsOf      string
	reportOutputDir string
	reportFromCSV   string
)

var reportCmd = &cobra.Command{
	Use:   "report [name...]",
	Short: "Compute analytic reports",
	Long: `Compute one or more reports over a consistent snapshot of the star
schema and print them. With no names every report is computed. Use
--output-dir to write one file per report, and --from-csv to compute from
a directory of CSV files instead of the database.

Example:
  pgedge-pharma report rep_performance --format csv
  pgedge-pharma report --output-dir reports --as-of 2024-06-30`,
	RunE: runReport,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print actionable insights",
	Long: `Print the actionable insights derived from the star schema:
underperforming territories, regional marketing ROI and growth products.`,
	RunE: runInsights,
}

func init() {
	for _, cmd := range []*cobra.Command{reportCmd, insightsCmd} {
		cmd.Flags().StringVar(&reportFromCSV, "from-csv", "",
			"compute from the CSV files in this directory instead of the database")
	}
	reportCmd.Flags().StringVar(&reportFormat, "format", "",
		"output format: text, csv, json (default: text)")
	reportCmd.Flags().StringVar(&reportAsOf, "as-of", "",
		"reference date for recency measures, YYYY-MM-DD (default: today)")
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "",
		"write one file per report into this directory")
	insightsCmd.Flags().StringVar(&reportFormat, "format", "",
		"output format: text or json (default: text)")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFormat != "" {
		cfg.Report.Format = reportFormat
	}
	if reportAsOf != "" {
		cfg.Report.AsOf = reportAsOf
	}
	if reportOutputDir != "" {
		cfg.Report.OutputDir = reportOutputDir
	}
	if err := cfg.ValidateReport(); err != nil {
		return err
	}
	for _, name := range args {
		if _, err := analytics.Get(name); err != nil {
			return fmt.Errorf("%w (see 'pgedge-pharma reports')", err)
		}
	}
	opts, err := reportOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}

	results, err := analytics.ComputeAll(ctx, snap, args, opts)
	if err != nil {
		return err
	}
	if results.Dropped > 0 {
		logging.Warn().
			Int("sales", results.Dropped).
			Msg("Sales with unresolved dimension keys were excluded")
	}

	names := args
	if len(names) == 0 {
		names = analytics.List()
	}

	if cfg.Report.OutputDir != "" {
		return writeReportFiles(results, names)
	}

	out := cmd.OutOrStdout()
	for i, name := range names {
		if len(names) > 1 && cfg.Report.Format != analytics.FormatJSON {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "== %s ==\n", name)
		}
		table, err := results.Table(name)
		if err != nil {
			return err
		}
		if err := analytics.Render(out, table, cfg.Report.Format); err != nil {
			return err
		}
	}
	return nil
}

// writeReportFiles writes each report to <output_dir>/<name>.<format>.
func writeReportFiles(results *analytics.Results, names []string) error {
	if err := os.MkdirAll(cfg.Report.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := cfg.Report.Format
	if ext == analytics.FormatText || ext == "" {
		ext = "txt"
	}
	for _, name := range names {
		table, err := results.Table(name)
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.Report.OutputDir, name+"."+ext)
		if err := writeFile(path, func(w io.Writer) error {
			return analytics.Render(w, table, cfg.Report.Format)
		}); err != nil {
			return err
		}
		logging.Info().
			Str("report", name).
			Str("path", path).
			Int("rows", table.Len()).
			Msg("Report written")
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func runInsights(cmd *cobra.Command, args []string) error {
	format := reportFormat
	if format != "" && format != analytics.FormatText && format != analytics.FormatJSON {
		return fmt.Errorf("unsupported insights format %q (supported: text, json)", format)
	}

	ctx, cancel := signalContext()
	defer cancel()

	snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}

	insights := analytics.GenerateInsights(snap)
	if format == analytics.FormatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(insights)
	}
	return analytics.RenderInsights(cmd.OutOrStdout(), insights)
}

// loadSnapshot reads the star schema from the CSV directory given with
// --from-csv, or from the database otherwise.
func loadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if reportFromCSV != "" {
		ds, err := etl.ReadDataset(reportFromCSV)
		if err != nil {
			return nil, err
		}
		return model.NewSnapshot(ds), nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return store.New(pool, cfg.Schema, cfg.ETL.BatchSize).LoadSnapshot(ctx)
}
