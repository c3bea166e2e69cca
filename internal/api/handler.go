// Package api provides the HTTP control surface: probes and manual runs.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/health"
	"pdfcourier/internal/pipeline"
)

// RunService starts runs and reports on the latest one.
// pipeline.Runner implements it.
type RunService interface {
	Trigger(ctx context.Context) (string, error)
	Last() (*pipeline.RunReport, bool)
}

// TriggerResponse is returned when a manual run is accepted.
type TriggerResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// Handler contains HTTP handlers for the runs API
type Handler struct {
	runs   RunService
	health *health.Checker
}

// NewHandler creates a new API handler
func NewHandler(runs RunService, healthChecker *health.Checker) *Handler {
	return &Handler{
		runs:   runs,
		health: healthChecker,
	}
}

// TriggerRun handles POST /v1/runs
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	runID, err := h.runs.Trigger(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, TriggerResponse{RunID: runID, Status: "accepted"})
}

// LastRun handles GET /v1/runs/last
func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	report, ok := h.runs.Last()
	if !ok {
		h.writeError(w, http.StatusNotFound, "no run has finished yet")
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 503 when the output directory is not writable or the scheduler is stopped.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsHealthy() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSONError(w, status, message)
}

// handleError handles errors from the runner with appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	switch {
	case status == http.StatusServiceUnavailable:
		slog.Warn("Service unavailable", "error", err, "path", r.URL.Path)
	case status >= 500:
		slog.Error("Internal error", "error", err, "path", r.URL.Path)
	default:
		slog.Warn("Client error", "error", err, "path", r.URL.Path, "status", status)
	}
	h.writeError(w, status, err.Error())
}
