package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phelanor/goalforge/internal/domain"
)

// WorkSource provides the ordered list of work items a job must process
// for a given target entity. The read is synchronous; the engine retries
// it under the data-retrieval policy when it fails transiently.
type WorkSource interface {
	// ListWorkItems returns the work items for the target in submission
	// order. Returns ErrGoalNotFound if the target does not exist.
	ListWorkItems(ctx context.Context, jobType domain.JobType, targetID uuid.UUID) ([]domain.WorkItem, error)
}
