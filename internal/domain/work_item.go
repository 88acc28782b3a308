package domain

import "github.com/google/uuid"

// WorkItem is one unit of generation work inside a job. Work items are
// transient and in-memory only: they are never persisted independently,
// and their outcomes fold into the owning job's result or error.
type WorkItem struct {
	ID              uuid.UUID
	Payload         string
	BatchIndex      int
	PositionInBatch int
}
