package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phelanor/goalforge/internal/domain"
)

// ProcessingStateStore defines the interface for processing state persistence.
// The engine manager is the only writer; callers may read concurrently.
type ProcessingStateStore interface {
	// Create saves a new processing state to the store.
	// Returns ErrActiveJobExists if a non-terminal state already exists
	// for the same (owner, job type, target) triple.
	Create(ctx context.Context, state *domain.ProcessingState) error

	// GetByID retrieves a processing state by its unique ID.
	// Returns ErrStateNotFound if the state does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessingState, error)

	// Update saves changes to an existing processing state.
	// Returns ErrStateNotFound if the state does not exist.
	Update(ctx context.Context, state *domain.ProcessingState) error

	// FindActive retrieves the non-terminal processing state for the given
	// owner, job type and target, if one exists.
	// Returns ErrStateNotFound when no active state exists.
	FindActive(ctx context.Context, ownerID uuid.UUID, jobType domain.JobType, targetID uuid.UUID) (*domain.ProcessingState, error)
}
