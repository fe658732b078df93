//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-pharma.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-pharma/internal/analytics"
	"github.com/pgEdge/pgedge-pharma/internal/config"
	"github.com/pgEdge/pgedge-pharma/internal/datagen"
	"github.com/pgEdge/pgedge-pharma/internal/db"
	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	schemaName string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-pharma",
		Short: "Pharmaceutical sales analytics on PostgreSQL",
		Long: `pgedge-pharma builds a pharmaceutical sales star schema in PostgreSQL,
fills it with synthetic data or loads it incrementally from CSV files, and
computes the analytic reports used by sales operations: rep performance,
territory analysis, doctor insights, product performance, quarterly trends
and demand features, plus a short list of actionable insights.

Reports can be printed as text, CSV or JSON, or served over HTTP with a
scheduled refresh.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-pharma.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&schemaName, "schema", "",
		"PostgreSQL schema holding the star schema (default: pharma)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if schemaName != "" {
		cfg.Schema = schemaName
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List available reports",
	Long: `List all reports that the report and serve commands can compute.
Each report is computed over one consistent snapshot of the star schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Available reports:")
		fmt.Fprintln(tw)
		for _, r := range analytics.All() {
			fmt.Fprintf(tw, "  %s\t%s\n", r.Name(), r.Description())
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Use 'pgedge-pharma report <name>' to compute one.")
		return tw.Flush()
	},
}

// connect opens a pool on the configured database and schema.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Connection, cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// generatorConfig builds the data generator settings from cfg.Init.
func generatorConfig() (datagen.Config, error) {
	start, end, err := cfg.Init.DateRange()
	if err != nil {
		return datagen.Config{}, err
	}
	gen := datagen.DefaultConfig()
	gen.Seed = uint64(cfg.Init.Seed)
	gen.Reps = cfg.Init.Reps
	gen.Doctors = cfg.Init.Doctors
	gen.Products = cfg.Init.Products
	gen.Territories = cfg.Init.Territories
	gen.Sales = cfg.Init.Sales
	gen.Start = start
	gen.End = end
	return gen, nil
}

// reportOptions builds the report options from cfg.Report.
func reportOptions() (analytics.Options, error) {
	asOf, err := cfg.Report.AsOfDate()
	if err != nil {
		return analytics.Options{}, err
	}
	return analytics.Options{AsOf: asOf}, nil
}
