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
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/scheduler"
	"github.com/pgEdge/pgedge-pharma/internal/server"
	"github.com/pgEdge/pgedge-pharma/internal/store"
)

var (
	serveListen          string
	serveRefreshInterval int
	serveRefreshTimeout  int
	serveAsOf            string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports over HTTP with scheduled refresh",
	Long: `Serve every report, the insights and the ETL run log as a JSON API.
Reports are computed from a fresh snapshot when the server starts and then
on every refresh interval; requests always see the latest complete set.
The server runs until interrupted with Ctrl+C.

Endpoints:
  GET /healthz
  GET /api/reports
  GET /api/reports/{name}?format=json|csv|text
  GET /api/insights
  GET /api/stats
  GET /api/runs?limit=N

Example:
  pgedge-pharma serve --connection "postgres://..." --listen :8080 --refresh-interval 300`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"address to listen on (default: :8080)")
	serveCmd.Flags().IntVar(&serveRefreshInterval, "refresh-interval", 0,
		"seconds between report refreshes (default: 300)")
	serveCmd.Flags().IntVar(&serveRefreshTimeout, "refresh-timeout", 0,
		"seconds one refresh may take (default: 120)")
	serveCmd.Flags().StringVar(&serveAsOf, "as-of", "",
		"fixed reference date for recency measures, YYYY-MM-DD (default: today)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}
	if serveRefreshInterval > 0 {
		cfg.Serve.RefreshInterval = serveRefreshInterval
	}
	if serveRefreshTimeout > 0 {
		cfg.Serve.RefreshTimeout = serveRefreshTimeout
	}
	if serveAsOf != "" {
		cfg.Report.AsOf = serveAsOf
	}

	// Validate configuration
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	opts, err := reportOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool, cfg.Schema, cfg.ETL.BatchSize)

	refresher, err := scheduler.New(scheduler.Config{
		Source:   st,
		Options:  opts,
		Interval: time.Duration(cfg.Serve.RefreshInterval) * time.Second,
		Timeout:  time.Duration(cfg.Serve.RefreshTimeout) * time.Second,
	})
	if err != nil {
		return err
	}

	logging.Info().
		Str("schema", cfg.Schema).
		Str("listen", cfg.Serve.Listen).
		Int("refresh_interval", cfg.Serve.RefreshInterval).
		Msg("Starting report server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		return server.New(refresher, st).ListenAndServe(gctx, cfg.Serve.Listen)
	})
	err = g.Wait()

	refresher.PrintSummary()
	return err
}
