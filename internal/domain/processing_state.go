package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of generation work a job performs.
type JobType string

// Supported generation job types. The enum is closed: every job carries
// exactly one of these values and stores reject anything else.
const (
	JobTypeSubgoals JobType = "subgoal_generation"
	JobTypeTasks    JobType = "task_generation"
	JobTypePlan     JobType = "plan_generation"
)

// ProcessingStatus represents the lifecycle state of a generation job.
type ProcessingStatus string

// Possible processing status values. Pending and Processing are the only
// non-terminal states; once a job reaches a terminal state no further
// transition is accepted.
const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
	ProcessingStatusTimeout    ProcessingStatus = "timeout"
	ProcessingStatusCancelled  ProcessingStatus = "cancelled"
)

// Common validation errors for ProcessingState
var (
	ErrEmptyStateID        = errors.New("processing state ID cannot be empty")
	ErrEmptyOwnerID        = errors.New("processing state owner ID cannot be empty")
	ErrEmptyTargetID       = errors.New("processing state target ID cannot be empty")
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidStatus       = errors.New("invalid processing status")
	ErrInvalidProgress     = errors.New("progress must be between 0 and 100")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTerminalState       = errors.New("processing state is already terminal")
	ErrProgressNotMonotone = errors.New("progress cannot decrease")
)

// JobError is the structured failure descriptor attached to a job that
// ended in a failed or timeout state.
type JobError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// GeneratedItem is one successful unit of generation output.
type GeneratedItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Position int       `json:"position"`
	Title    string    `json:"title"`
	Detail   string    `json:"detail"`
}

// ItemFailure records a work item that failed irrecoverably, with its
// classified error detail, so callers can resubmit just the failed subset.
type ItemFailure struct {
	ItemID    uuid.UUID `json:"item_id"`
	Position  int       `json:"position"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// JobResult is the aggregated output of a job. Items always appear in
// original submission order. Partial is true when some but not all work
// items succeeded; in that case Failed lists the items that did not.
type JobResult struct {
	Items   []GeneratedItem `json:"items"`
	Failed  []ItemFailure   `json:"failed,omitempty"`
	Partial bool            `json:"partial"`
}

// ProcessingState is the durable record of one workflow execution.
// It is created once on submission and mutated exclusively by the engine
// manager until it reaches a terminal status.
type ProcessingState struct {
	ID          uuid.UUID        `json:"id"`
	OwnerID     uuid.UUID        `json:"owner_id"`
	JobType     JobType          `json:"job_type"`
	Status      ProcessingStatus `json:"status"`
	TargetID    uuid.UUID        `json:"target_id"`
	Progress    int              `json:"progress"`
	Result      *JobResult       `json:"result,omitempty"`
	Error       *JobError        `json:"error,omitempty"`
	RetryCount  int              `json:"retry_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewProcessingState creates a new pending ProcessingState for the given
// owner, job type and target. Returns an error if validation fails.
func NewProcessingState(ownerID uuid.UUID, jobType JobType, targetID uuid.UUID) (*ProcessingState, error) {
	now := time.Now().UTC()
	state := &ProcessingState{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		JobType:   jobType,
		Status:    ProcessingStatusPending,
		TargetID:  targetID,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks if the ProcessingState has valid data.
func (s *ProcessingState) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptyStateID
	}

	if s.OwnerID == uuid.Nil {
		return ErrEmptyOwnerID
	}

	if s.TargetID == uuid.Nil {
		return ErrEmptyTargetID
	}

	if !IsValidJobType(s.JobType) {
		return ErrInvalidJobType
	}

	if !isValidProcessingStatus(s.Status) {
		return ErrInvalidStatus
	}

	if s.Progress < 0 || s.Progress > 100 {
		return ErrInvalidProgress
	}

	return nil
}

// IsTerminal reports whether the state has reached a terminal status.
func (s *ProcessingState) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// TransitionTo moves the state to the given status after checking the
// transition is legal, and updates the UpdatedAt timestamp. Terminal
// transitions also set CompletedAt. Returns ErrTerminalState when the
// state is already terminal and ErrInvalidTransition for any other
// disallowed move.
func (s *ProcessingState) TransitionTo(status ProcessingStatus) error {
	if !isValidProcessingStatus(status) {
		return ErrInvalidStatus
	}

	if s.IsTerminal() {
		return ErrTerminalState
	}

	if !canTransition(s.Status, status) {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	s.Status = status
	s.UpdatedAt = now
	if status.IsTerminal() {
		s.CompletedAt = &now
	}

	return nil
}

// SetProgress advances the job's progress percentage. Progress is
// monotone non-decreasing and only meaningful while processing.
func (s *ProcessingState) SetProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return ErrInvalidProgress
	}

	if progress < s.Progress {
		return ErrProgressNotMonotone
	}

	s.Progress = progress
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the status is one of the four terminal values.
func (st ProcessingStatus) IsTerminal() bool {
	switch st {
	case ProcessingStatusCompleted, ProcessingStatusFailed,
		ProcessingStatusTimeout, ProcessingStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValidJobType checks if the given value is a known JobType.
func IsValidJobType(jobType JobType) bool {
	switch jobType {
	case JobTypeSubgoals, JobTypeTasks, JobTypePlan:
		return true
	default:
		return false
	}
}

// canTransition encodes the state machine: pending may only start
// processing, and processing may only move to a terminal status.
func canTransition(from, to ProcessingStatus) bool {
	switch from {
	case ProcessingStatusPending:
		return to == ProcessingStatusProcessing || to == ProcessingStatusCancelled
	case ProcessingStatusProcessing:
		return to.IsTerminal()
	default:
		return false
	}
}

// isValidProcessingStatus checks if the given status is a valid ProcessingStatus.
func isValidProcessingStatus(status ProcessingStatus) bool {
	switch status {
	case ProcessingStatusPending, ProcessingStatusProcessing,
		ProcessingStatusCompleted, ProcessingStatusFailed,
		ProcessingStatusTimeout, ProcessingStatusCancelled:
		return true
	default:
		return false
	}
}
