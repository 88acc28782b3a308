package api

import (
	"time"

	"github.com/phelanor/goalforge/internal/domain"
)

// SubmitJobRequest represents the request body for submitting a generation job.
type SubmitJobRequest struct {
	OwnerID  string `json:"owner_id" validate:"required,uuid4"`
	JobType  string `json:"job_type" validate:"required,oneof=subgoal_generation task_generation plan_generation"`
	TargetID string `json:"target_id" validate:"required,uuid4"`
}

// SubmitJobResponse represents the response for an accepted job submission.
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse represents the response data for a job's current state.
type JobStatusResponse struct {
	JobID       string            `json:"job_id"`
	OwnerID     string            `json:"owner_id"`
	JobType     string            `json:"job_type"`
	TargetID    string            `json:"target_id"`
	Status      string            `json:"status"`
	Progress    int               `json:"progress"`
	Result      *domain.JobResult `json:"result,omitempty"`
	Error       *domain.JobError  `json:"error,omitempty"`
	RetryCount  int               `json:"retry_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// stateToResponse converts a domain.ProcessingState to a JobStatusResponse.
func stateToResponse(state *domain.ProcessingState) JobStatusResponse {
	return JobStatusResponse{
		JobID:       state.ID.String(),
		OwnerID:     state.OwnerID.String(),
		JobType:     string(state.JobType),
		TargetID:    state.TargetID.String(),
		Status:      string(state.Status),
		Progress:    state.Progress,
		Result:      state.Result,
		Error:       state.Error,
		RetryCount:  state.RetryCount,
		CreatedAt:   state.CreatedAt,
		UpdatedAt:   state.UpdatedAt,
		CompletedAt: state.CompletedAt,
	}
}
