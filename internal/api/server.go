// Package api serves the latest scan, the signal history and metrics over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/moverscan/internal/api/handler"
	"github.com/newthinker/moverscan/internal/metrics"
	"go.uber.org/zap"
)

// Server represents the HTTP server of the watch command
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Addr        string
	MetricsPath string // Empty disables the metrics endpoint
}

// Dependencies holds what the handlers read from.
type Dependencies struct {
	Reports handler.ReportSource
	Signals handler.SignalLister
	Metrics *metrics.Registry

	// Optional on-demand analysis; routes are left out when nil.
	Backtests handler.Backtester
	Symbols   handler.Inspector
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Reports == nil || deps.Signals == nil {
		return nil, fmt.Errorf("report source and signal lister are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(mux)
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	reports := handler.NewReportHandler(deps.Reports)
	signals := handler.NewSignalsHandler(deps.Signals)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /stats", reports.Stats)
	s.mux.HandleFunc("GET /report", reports.Latest)
	s.mux.HandleFunc("GET /report.txt", reports.LatestText)
	s.mux.HandleFunc("GET /signals", signals.List)

	if deps.Backtests != nil {
		s.mux.HandleFunc("POST /backtest", handler.NewBacktestHandler(deps.Backtests).Run)
	}
	if deps.Symbols != nil {
		s.mux.HandleFunc("GET /symbols/{symbol}", handler.NewSymbolHandler(deps.Symbols).Get)
	}

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, deps.Metrics.Handler())
	}
}

// Handler returns the root handler, including the metrics middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
