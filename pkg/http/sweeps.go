package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-neurotools/pkg/hcl"
	"github.com/leowmjw/go-neurotools/pkg/metrics"
	"github.com/leowmjw/go-neurotools/pkg/store"
	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

// SweepStarted is returned when a sweep is accepted without waiting for it
type SweepStarted struct {
	SweepID    string `json:"sweep_id"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// handleStartSweep accepts a sweep as JSON or HCL and starts its workflow.
// With ?wait=true the response is the finished SweepResult.
func (s *Server) handleStartSweep(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	contentType, body, err := hcl.DetectContentType(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var request temporal.SweepRequest
	if contentType == hcl.ContentTypeHCL {
		parsed, err := hcl.ParseHCLSweep(string(body))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid HCL: "+err.Error())
			return
		}
		request = *parsed
	} else if err := json.Unmarshal(body, &request); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	request = request.WithDefaults()
	if err := request.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("Starting sweep", "sweepID", request.ID, "kind", request.Process.Kind, "format", contentType)

	workflowID := temporal.GenerateSweepWorkflowID(request.ID)
	workflowRun, err := s.temporalClient.ExecuteWorkflow(
		r.Context(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.SweepWorkflowName,
		request,
	)
	if err != nil {
		s.logger.Error("Failed to start sweep workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start sweep")
		return
	}
	metrics.SweepsStarted.Inc()

	if r.URL.Query().Get("wait") != "true" {
		s.respondJSON(w, http.StatusAccepted, SweepStarted{
			SweepID:    request.ID,
			WorkflowID: workflowRun.GetID(),
			RunID:      workflowRun.GetRunID(),
		})
		return
	}

	var result *temporal.SweepResult
	if err := workflowRun.Get(r.Context(), &result); err != nil {
		s.logger.Error("Sweep workflow failed", "sweepID", request.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "sweep execution failed")
		return
	}

	s.logger.Info("Sweep completed", "sweepID", request.ID, "points", len(result.Points))
	s.respondJSON(w, http.StatusOK, result)
}

// handleGetSweep returns the stored summary of a finished sweep
func (s *Server) handleGetSweep(w http.ResponseWriter, r *http.Request) {
	sweepID := r.PathValue("id")
	if sweepID == "" {
		s.respondError(w, http.StatusBadRequest, "sweep ID is required")
		return
	}

	result, err := temporal.LoadSummary(r.Context(), s.store, sweepID)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "sweep not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load sweep summary", "sweepID", sweepID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load sweep")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
