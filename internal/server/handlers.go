package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/applicant-analyzer/internal/analysis"
	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// InitiateResponse represents the response for starting an analysis run
type InitiateResponse struct {
	RunID  string `json:"run_id"`
	Total  int    `json:"total"`
	Status string `json:"status"`
}

// CancelResponse represents the response for cancelling an analysis run
type CancelResponse struct {
	Status         string `json:"status"`
	PreservedCount int    `json:"preserved_count"`
}

// ResultsResponse represents the response for listing analysis results
type ResultsResponse struct {
	Results []types.AnalysisResult `json:"results"`
	Count   int                    `json:"count"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// handleInitiateAnalysis starts an analysis run for a job listing
func (s *Server) handleInitiateAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	res, err := s.service.Initiate(r.Context(), jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, InitiateResponse{
		RunID:  res.RunID.String(),
		Total:  res.Total,
		Status: "started",
	})
}

// handleRerunAnalysis deletes prior results and starts a fresh run
func (s *Server) handleRerunAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	res, err := s.service.Rerun(r.Context(), jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, InitiateResponse{
		RunID:  res.RunID.String(),
		Total:  res.Total,
		Status: "started",
	})
}

// handleCancelAnalysis requests cancellation of a running analysis
func (s *Server) handleCancelAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	res, err := s.service.Cancel(r.Context(), jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, CancelResponse{
		Status:         "cancellation_requested",
		PreservedCount: res.PreservedCount,
	})
}

// handleAnalysisStatus returns the state of the most recent run for a job
func (s *Server) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	status, err := s.service.GetStatus(r.Context(), jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, status)
}

// handleAnalysisResults lists persisted results with optional filters
func (s *Server) handleAnalysisResults(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	limit := parseQueryInt(r, "limit", 50, 200)
	offset := parseQueryInt(r, "offset", 0, 0)
	filters := db.ResultFilters{Limit: limit, Offset: offset}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := types.Status(statusStr)
		if status != types.StatusAnalyzed && status != types.StatusUnprocessed {
			s.errorResponse(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filters.Status = status
	}

	if categoryStr := r.URL.Query().Get("category"); categoryStr != "" {
		category := types.Category(categoryStr)
		if !category.Valid() {
			s.errorResponse(w, http.StatusBadRequest, "Invalid category filter")
			return
		}
		filters.Category = category
	}

	if minStr := r.URL.Query().Get("min_overall"); minStr != "" {
		min, err := strconv.Atoi(minStr)
		if err != nil || min < 0 || min > 100 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid min_overall filter")
			return
		}
		filters.MinOverall = &min
	}

	results, err := s.service.GetResults(r.Context(), jobID, filters)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, ResultsResponse{
		Results: results,
		Count:   len(results),
		Limit:   limit,
		Offset:  offset,
	})
}

// jobIDFromPath parses the {id} path segment; on failure it writes the error
// response and returns false.
func (s *Server) jobIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	jobID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job listing ID")
		return uuid.Nil, false
	}
	return jobID, true
}

// serviceError maps analysis failure modes to HTTP status codes.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrConflict):
		s.errorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, analysis.ErrJobActive), errors.Is(err, analysis.ErrNoApplicants):
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case analysis.IsRetryable(err):
		s.errorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}
