package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrStateNotFound indicates that the requested processing state does
	// not exist in the store.
	ErrStateNotFound = fmt.Errorf("%w: processing state", ErrNotFound)

	// ErrGoalNotFound indicates that the goal a job targets does not exist.
	ErrGoalNotFound = fmt.Errorf("%w: goal", ErrNotFound)

	// ErrActiveJobExists indicates that a non-terminal processing state
	// already exists for the same owner, job type and target. Concurrent
	// duplicate submissions are rejected, not coalesced.
	ErrActiveJobExists = fmt.Errorf("%w: active job for target", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
