package handler

import (
	"log/slog"
	"net/http"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
	"github.com/sylvaincormier/bittensor-async-api/internal/service"
)

// JobHandler serves trade job lookups.
type JobHandler struct {
	svc    *service.DividendService
	jobs   domain.TradeJobStore
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(svc *service.DividendService, jobs domain.TradeJobStore, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		svc:    svc,
		jobs:   jobs,
		logger: logHandler(logger, "jobs"),
	}
}

// GetJob returns the current state of one trade job.
// GET /api/v1/trades/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := h.svc.Job(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// ListJobs returns recently dispatched trade jobs, most recent first.
// GET /api/v1/trades?limit=50
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list jobs failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if jobs == nil {
		jobs = []domain.TradeJob{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
