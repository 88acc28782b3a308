package generation

import (
	"context"

	"github.com/phelanor/goalforge/internal/domain"
)

// Generator defines the interface for producing generated content from a
// single work item. It is the boundary between the workflow engine and
// external AI/LLM services: one call per work item, bounded by the unit
// deadline and retried by the engine's retry policy. Implementations do
// not retry internally.
type Generator interface {
	// GenerateItem produces the content for one work item.
	// It returns a GeneratedItem carrying the item's ID and position, or
	// an error classifiable by the engine (see errors.go for sentinel
	// values implementations should wrap).
	GenerateItem(ctx context.Context, item domain.WorkItem) (*domain.GeneratedItem, error)
}
