// Package server provides the HTTP REST API for the applicant analysis agent.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/applicant-analyzer/internal/analysis"
	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// AnalysisService is the slice of *analysis.Service the handlers need.
type AnalysisService interface {
	Initiate(ctx context.Context, jobListingID uuid.UUID) (*analysis.InitiateResult, error)
	Rerun(ctx context.Context, jobListingID uuid.UUID) (*analysis.InitiateResult, error)
	Cancel(ctx context.Context, jobListingID uuid.UUID) (*analysis.CancelResult, error)
	GetStatus(ctx context.Context, jobListingID uuid.UUID) (*analysis.StatusResult, error)
	GetResults(ctx context.Context, jobListingID uuid.UUID, filters db.ResultFilters) ([]types.AnalysisResult, error)
	Shutdown()
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	service    AnalysisService
	logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance
func New(cfg Config, service AnalysisService, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/{id}/analysis", s.handleInitiateAnalysis)
	mux.HandleFunc("POST /jobs/{id}/analysis/rerun", s.handleRerunAnalysis)
	mux.HandleFunc("DELETE /jobs/{id}/analysis", s.handleCancelAnalysis)
	mux.HandleFunc("GET /jobs/{id}/analysis/status", s.handleAnalysisStatus)
	mux.HandleFunc("GET /jobs/{id}/analysis/results", s.handleAnalysisResults)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for requests and blocks until SIGINT/SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let in-flight analysis runs reach a terminal state before exiting so
	// their locks are released cleanly.
	s.service.Shutdown()

	s.logger.Info("server stopped")
	return nil
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
