//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server exposes the computed reports over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pgEdge/pgedge-pharma/internal/analytics"
	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/scheduler"
	"github.com/pgEdge/pgedge-pharma/internal/store"
	"github.com/pgEdge/pgedge-pharma/pkg/version"
)

const defaultRunLimit = 20

// Results is the source of the report results the server publishes.
type Results interface {
	Latest() (*analytics.Results, error)
	Stats() scheduler.Stats
}

// RunLister lists recent ETL runs.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Server serves the reports API.
type Server struct {
	results Results
	runs    RunLister
	router  *mux.Router
}

// New creates a server. runs may be nil, in which case the run log
// endpoint is not registered.
func New(results Results, runs RunLister) *Server {
	s := &Server{results: results, runs: runs, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(logRequests)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reports", s.handleListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{name}", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/insights", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	if s.runs != nil {
		api.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("listen", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	logging.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, err := s.results.Latest()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"ready":   err == nil,
		"version": version.Version,
	})
}

type reportInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rows        *int   `json:"rows,omitempty"`
}

func (s *Server) handleListReports(w http.ResponseWriter, _ *http.Request) {
	latest, _ := s.results.Latest()

	reports := analytics.All()
	infos := make([]reportInfo, 0, len(reports))
	for _, r := range reports {
		info := reportInfo{Name: r.Name(), Description: r.Description()}
		if latest != nil {
			if t, err := latest.Table(r.Name()); err == nil {
				n := t.Len()
				info.Rows = &n
			}
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, err := analytics.Get(name); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	latest, ok := s.latest(w)
	if !ok {
		return
	}
	table, err := latest.Table(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = analytics.FormatJSON
	}
	switch format {
	case analytics.FormatJSON:
		writeJSON(w, http.StatusOK, map[string]any{
			"name":        name,
			"computed_at": latest.ComputedAt,
			"rows":        table,
		})
	case analytics.FormatCSV, analytics.FormatText:
		contentType := "text/plain; charset=utf-8"
		if format == analytics.FormatCSV {
			contentType = "text/csv; charset=utf-8"
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", name+".csv"))
		}
		w.Header().Set("Content-Type", contentType)
		if err := analytics.Render(w, table, format); err != nil {
			logging.Warn().Err(err).Str("report", name).Msg("Failed to write report")
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func (s *Server) handleInsights(w http.ResponseWriter, _ *http.Request) {
	latest, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"computed_at": latest.ComputedAt,
		"insights":    latest.Insights,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.results.Stats())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list ETL runs")
		writeError(w, http.StatusInternalServerError, errors.New("failed to list runs"))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// latest writes 503 and returns false until the first refresh completes.
func (s *Server) latest(w http.ResponseWriter) (*analytics.Results, bool) {
	latest, err := s.results.Latest()
	if err != nil {
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return latest, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// logRequests logs every request at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
