//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-pharma/internal/datagen"
	"github.com/pgEdge/pgedge-pharma/internal/db"
	"github.com/pgEdge/pgedge-pharma/internal/etl"
	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/schema"
	"github.com/pgEdge/pgedge-pharma/internal/store"
)

var (
	initDropExisting bool
	genSeed          int64
	genReps          int
	genDoctors       int
	genProducts      int
	genTerritories   int
	genSales         int
	genStartDate     string
	genEndDate       string
	genOutputDir     string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the star schema and fill it with generated data",
	Long: `Create the pharmaceutical sales star schema in PostgreSQL and populate
it with a synthetic dataset. The dimension and sales counts and the date
range control how much data is generated; a fixed seed makes the dataset
reproducible.

Example:
  pgedge-pharma init --connection "postgres://..." --sales 100000 --seed 42`,
	RunE: runInit,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a generated dataset as CSV files",
	Long: `Generate a synthetic dataset and write it as one CSV file per table,
ready for the load command. No database connection is needed.

Example:
  pgedge-pharma generate --output-dir data --seed 42`,
	RunE: runGenerate,
}

func init() {
	for _, cmd := range []*cobra.Command{initCmd, generateCmd} {
		cmd.Flags().Int64Var(&genSeed, "seed", 0,
			"random seed for reproducible data (0 = random)")
		cmd.Flags().IntVar(&genReps, "reps", 0,
			"number of sales reps (default: 50)")
		cmd.Flags().IntVar(&genDoctors, "doctors", 0,
			"number of doctors (default: 500)")
		cmd.Flags().IntVar(&genProducts, "products", 0,
			"number of products (default: 20)")
		cmd.Flags().IntVar(&genTerritories, "territories", 0,
			"number of territories (default: 25)")
		cmd.Flags().IntVar(&genSales, "sales", 0,
			"number of sales transactions (default: 50000)")
		cmd.Flags().StringVar(&genStartDate, "start-date", "",
			"first date of the date dimension, YYYY-MM-DD")
		cmd.Flags().StringVar(&genEndDate, "end-date", "",
			"last date of the date dimension, YYYY-MM-DD")
	}
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing schema before initialization")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "",
		"directory to write the CSV files to (default: etl data_dir)")
}

// applyGenerateFlags overrides cfg.Init with the generation flags.
func applyGenerateFlags() {
	if genSeed != 0 {
		cfg.Init.Seed = genSeed
	}
	if genReps > 0 {
		cfg.Init.Reps = genReps
	}
	if genDoctors > 0 {
		cfg.Init.Doctors = genDoctors
	}
	if genProducts > 0 {
		cfg.Init.Products = genProducts
	}
	if genTerritories > 0 {
		cfg.Init.Territories = genTerritories
	}
	if genSales > 0 {
		cfg.Init.Sales = genSales
	}
	if genStartDate != "" {
		cfg.Init.StartDate = genStartDate
	}
	if genEndDate != "" {
		cfg.Init.EndDate = genEndDate
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	applyGenerateFlags()
	if initDropExisting {
		cfg.Init.DropExisting = true
	}

	// Validate configuration
	if err := cfg.ValidateInit(); err != nil {
		return err
	}
	genCfg, err := generatorConfig()
	if err != nil {
		return err
	}

	logging.Info().
		Str("schema", cfg.Schema).
		Int("sales", cfg.Init.Sales).
		Msg("Initializing database")

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Refuse to overwrite an initialized schema unless asked to
	if initialized, _ := db.GetMetadataValue(ctx, pool, db.MetaInitializedAt); initialized != "" {
		if !cfg.Init.DropExisting {
			return fmt.Errorf(
				"schema '%s' was already initialized at %s; "+
					"use --drop-existing to reinitialize or 'load' to add data",
				cfg.Schema, initialized)
		}
	}

	if cfg.Init.DropExisting {
		logging.Info().Str("schema", cfg.Schema).Msg("Dropping existing schema")
		if err := schema.DropSchema(ctx, pool, cfg.Schema); err != nil {
			return err
		}
	}

	logging.Info().Msg("Creating schema")
	if err := schema.CreateSchema(ctx, pool, cfg.Schema); err != nil {
		return err
	}

	logging.Info().Msg("Generating test data")
	ds, err := datagen.NewGenerator(genCfg).Generate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate data: %w", err)
	}

	st := store.New(pool, cfg.Schema, cfg.ETL.BatchSize)
	loaded, err := st.WriteDataset(ctx, ds)
	if err != nil {
		return fmt.Errorf("failed to load generated data: %w", err)
	}

	// Save metadata
	err = db.SaveMetadata(ctx, pool, map[string]string{
		db.MetaInitializedAt: db.Timestamp(time.Now()),
		db.MetaLastLoadAt:    db.Timestamp(time.Now()),
		db.MetaSource:        "generated",
		db.MetaSeed:          strconv.FormatInt(cfg.Init.Seed, 10),
	})
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().
		Str("schema", cfg.Schema).
		Interface("rows", loaded).
		Msg("Database initialization complete")

	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	applyGenerateFlags()
	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}
	genCfg, err := generatorConfig()
	if err != nil {
		return err
	}

	dir := genOutputDir
	if dir == "" {
		dir = cfg.ETL.DataDir
	}

	ds, err := datagen.NewGenerator(genCfg).Generate(context.Background())
	if err != nil {
		return fmt.Errorf("failed to generate data: %w", err)
	}
	if err := etl.WriteDataset(dir, ds); err != nil {
		return err
	}

	logging.Info().
		Str("dir", dir).
		Interface("rows", ds.Counts()).
		Msg("Dataset written")

	return nil
}
