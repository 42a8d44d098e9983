//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server implements the dashboard: a small JSON API over the
// registered views, plotly figures for each of them, and an embedded page
// that draws those figures in the browser.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownTimeout = 10 * time.Second

// Server serves the dashboard.
type Server struct {
	db  db.DB
	cfg config.ServeConfig
	log zerolog.Logger
	mux *http.ServeMux
}

// New creates a server reading from database.
func New(database db.DB, cfg config.ServeConfig) *Server {
	s := &Server{
		db:  database,
		cfg: cfg,
		log: logging.Component("server"),
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/views", s.handleViews)
	s.mux.HandleFunc("GET /api/views/{name}", s.handleView)
	s.mux.HandleFunc("GET /api/views/{name}/figure", s.handleFigure)
	s.mux.HandleFunc("GET /api/lookups", s.handleLookups)
	s.mux.HandleFunc("GET /api/lookups/{name}", s.handleLookup)
}

// Handler returns the HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Msg("Dashboard listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down dashboard")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}
