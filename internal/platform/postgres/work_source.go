package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/platform/logger"
	"github.com/phelanor/goalforge/internal/store"
)

// PostgresWorkSource implements store.WorkSource over the goals table.
// Each outline entry of the target goal becomes one work item, in outline
// order, with a prompt payload built for the requested job type.
type PostgresWorkSource struct {
	db store.DBTX
}

// NewPostgresWorkSource creates a new PostgresWorkSource.
func NewPostgresWorkSource(db store.DBTX) *PostgresWorkSource {
	return &PostgresWorkSource{
		db: db,
	}
}

// Verify PostgresWorkSource implements store.WorkSource
var _ store.WorkSource = (*PostgresWorkSource)(nil)

// ListWorkItems returns the work items for the target goal in outline
// order. Returns store.ErrGoalNotFound if the goal does not exist.
func (s *PostgresWorkSource) ListWorkItems(
	ctx context.Context,
	jobType domain.JobType,
	targetID uuid.UUID,
) ([]domain.WorkItem, error) {
	log := logger.FromContext(ctx)

	goal, err := s.getGoal(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrGoalNotFound, targetID)
		}
		log.Error("failed to load goal for work items",
			"goal_id", targetID,
			"job_type", jobType,
			"error", err)
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}

	items := make([]domain.WorkItem, 0, len(goal.Outline))
	for _, entry := range goal.Outline {
		items = append(items, domain.WorkItem{
			ID:      uuid.New(),
			Payload: buildPayload(jobType, goal, entry),
		})
	}

	return items, nil
}

// getGoal loads a single goal row including its outline entries.
func (s *PostgresWorkSource) getGoal(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	query := `
		SELECT id, owner_id, title, description, outline, created_at, updated_at
		FROM goals
		WHERE id = $1
	`

	var goal domain.Goal
	var outlineJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&goal.ID,
		&goal.OwnerID,
		&goal.Title,
		&goal.Description,
		&outlineJSON,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(outlineJSON) > 0 {
		if err := json.Unmarshal(outlineJSON, &goal.Outline); err != nil {
			return nil, fmt.Errorf("failed to decode goal outline: %w", err)
		}
	}

	return &goal, nil
}

// buildPayload renders the prompt context for one outline entry. The
// generator fills this into its template verbatim, so the payload carries
// everything the model needs about the goal and the entry.
func buildPayload(jobType domain.JobType, goal *domain.Goal, entry string) string {
	var instruction string
	switch jobType {
	case domain.JobTypeSubgoals:
		instruction = "Propose a concrete subgoal for this focus area."
	case domain.JobTypeTasks:
		instruction = "Propose an actionable task for this focus area."
	case domain.JobTypePlan:
		instruction = "Propose a milestone with a rough timeframe for this focus area."
	default:
		instruction = "Propose a concrete next step for this focus area."
	}

	var b strings.Builder
	b.WriteString("Goal: ")
	b.WriteString(goal.Title)
	if goal.Description != "" {
		b.WriteString("\nContext: ")
		b.WriteString(goal.Description)
	}
	b.WriteString("\nFocus area: ")
	b.WriteString(entry)
	b.WriteString("\n")
	b.WriteString(instruction)
	return b.String()
}
