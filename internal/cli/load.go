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
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-pharma/internal/db"
	"github.com/pgEdge/pgedge-pharma/internal/etl"
	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/schema"
	"github.com/pgEdge/pgedge-pharma/internal/store"
)

var (
	loadDataDir   string
	loadBatchSize int
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load CSV files into the star schema incrementally",
	Long: `Load the six table CSV files from a directory into PostgreSQL.
Dimension rows whose key already exists are skipped, and only sales with
an id above the current maximum are added, so the same files can be
loaded repeatedly as they grow. Every run is recorded in the ETL run log.

Example:
  pgedge-pharma load --connection "postgres://..." --data-dir data`,
	RunE: runLoad,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts, metadata and recent ETL runs",
	RunE:  runStatus,
}

func init() {
	loadCmd.Flags().StringVar(&loadDataDir, "data-dir", "",
		"directory holding the CSV files (default: data)")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 0,
		"dimension rows per insert batch (default: 5000)")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadDataDir != "" {
		cfg.ETL.DataDir = loadDataDir
	}
	if loadBatchSize > 0 {
		cfg.ETL.BatchSize = loadBatchSize
	}
	if err := cfg.ValidateETL(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := schema.CreateSchema(ctx, pool, cfg.Schema); err != nil {
		return err
	}

	st := store.New(pool, cfg.Schema, cfg.ETL.BatchSize)
	result, err := etl.NewRunner(st, cfg.ETL.DataDir).Run(ctx)
	if err != nil {
		return err
	}

	err = db.SaveMetadata(ctx, pool, map[string]string{
		db.MetaLastLoadAt: db.Timestamp(time.Now()),
		db.MetaSource:     cfg.ETL.DataDir,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to save metadata")
	}

	cmd.Printf("Run %s loaded in %s:\n", result.RunID, result.Elapsed.Round(time.Millisecond))
	for _, table := range schema.Tables {
		cmd.Printf("  %-14s %d\n", table, result.Rows[table])
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if exists, err := db.MetadataExists(ctx, pool); err != nil || !exists {
		return fmt.Errorf("schema '%s' has not been initialized; run 'pgedge-pharma init' or 'load' first", cfg.Schema)
	}

	st := store.New(pool, cfg.Schema, cfg.ETL.BatchSize)
	counts, err := st.Counts(ctx)
	if err != nil {
		return err
	}
	metadata, err := db.GetAllMetadata(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	runs, err := st.RecentRuns(ctx, 5)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Schema %s\n\n", cfg.Schema)
	for _, table := range schema.Tables {
		fmt.Fprintf(tw, "  %s\t%d\n", table, counts[table])
	}

	fmt.Fprintln(tw, "\nMetadata:")
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, metadata[k])
	}

	if len(runs) > 0 {
		fmt.Fprintln(tw, "\nRecent ETL runs:")
		for _, r := range runs {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				r.ID, r.StartedAt.Format(time.RFC3339), r.Status, r.Source)
		}
	}
	return tw.Flush()
}
