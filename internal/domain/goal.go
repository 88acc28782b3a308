package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Goal
var (
	ErrEmptyGoalID      = errors.New("goal ID cannot be empty")
	ErrEmptyGoalOwnerID = errors.New("goal owner ID cannot be empty")
	ErrEmptyGoalTitle   = errors.New("goal title cannot be empty")
)

// Goal is the parent entity generation jobs target. Its outline entries
// are the seeds from which work items are derived: one entry becomes one
// unit of generation work.
type Goal struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Outline     []string  `json:"outline"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks if the Goal has valid data.
func (g *Goal) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGoalID
	}

	if g.OwnerID == uuid.Nil {
		return ErrEmptyGoalOwnerID
	}

	if g.Title == "" {
		return ErrEmptyGoalTitle
	}

	return nil
}
