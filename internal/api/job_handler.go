package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phelanor/goalforge/internal/api/shared"
	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/store"
)

// JobManager is the engine surface the handler depends on.
type JobManager interface {
	Submit(ctx context.Context, ownerID uuid.UUID, jobType domain.JobType, targetID uuid.UUID) (uuid.UUID, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*domain.ProcessingState, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// JobHandler handles generation job HTTP requests.
type JobHandler struct {
	manager   JobManager
	validator *validator.Validate
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(manager JobManager) *JobHandler {
	return &JobHandler{
		manager:   manager,
		validator: validator.New(),
	}
}

// Routes registers the job endpoints on the given router.
func (h *JobHandler) Routes(r chi.Router) {
	r.Post("/jobs", h.SubmitJob)
	r.Get("/jobs/{id}", h.GetJob)
	r.Delete("/jobs/{id}", h.CancelJob)
}

// SubmitJob handles POST /api/jobs requests. Processing is asynchronous,
// so a successful submission returns 202 Accepted with the job ID.
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid owner ID")
		return
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid target ID")
		return
	}

	jobID, err := h.manager.Submit(r.Context(), ownerID, domain.JobType(req.JobType), targetID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidJobType):
			shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown job type")
		case errors.Is(err, store.ErrActiveJobExists):
			shared.RespondWithError(w, r, http.StatusConflict, "An active job already exists for this target")
		default:
			slog.Error("failed to submit job",
				"error", err,
				"owner_id", ownerID,
				"job_type", req.JobType)
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to submit job")
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitJobResponse{
		JobID:  jobID.String(),
		Status: string(domain.ProcessingStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id} requests.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.manager.GetStatus(r.Context(), id)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
			return
		}
		slog.Error("failed to get job status", "error", err, "job_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get job status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stateToResponse(state))
}

// CancelJob handles DELETE /api/jobs/{id} requests. Cancellation is
// cooperative; the call returns as soon as the request is recorded.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.manager.Cancel(r.Context(), id); err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
			return
		}
		slog.Error("failed to cancel job", "error", err, "job_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to cancel job")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// jobIDFromRequest parses the {id} URL parameter, writing a 400 response
// and returning false when it is not a valid UUID.
func (h *JobHandler) jobIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}
