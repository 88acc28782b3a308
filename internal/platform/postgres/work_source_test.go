package postgres

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phelanor/goalforge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildPayloadIncludesGoalContext(t *testing.T) {
	goal := &domain.Goal{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "Run a marathon",
		Description: "First-time runner, six months to train",
		Outline:     []string{"base fitness", "nutrition"},
	}

	payload := buildPayload(domain.JobTypeSubgoals, goal, "base fitness")

	assert.Contains(t, payload, "Goal: Run a marathon")
	assert.Contains(t, payload, "Context: First-time runner, six months to train")
	assert.Contains(t, payload, "Focus area: base fitness")
	assert.Contains(t, payload, "subgoal")
}

func TestBuildPayloadOmitsEmptyDescription(t *testing.T) {
	goal := &domain.Goal{Title: "Learn Spanish"}

	payload := buildPayload(domain.JobTypeTasks, goal, "vocabulary")

	assert.NotContains(t, payload, "Context:")
	assert.Contains(t, payload, "Focus area: vocabulary")
}

func TestBuildPayloadVariesByJobType(t *testing.T) {
	goal := &domain.Goal{Title: "Ship the product"}

	subgoal := buildPayload(domain.JobTypeSubgoals, goal, "beta launch")
	task := buildPayload(domain.JobTypeTasks, goal, "beta launch")
	plan := buildPayload(domain.JobTypePlan, goal, "beta launch")

	assert.Contains(t, strings.ToLower(subgoal), "subgoal")
	assert.Contains(t, strings.ToLower(task), "task")
	assert.Contains(t, strings.ToLower(plan), "milestone")
	assert.NotEqual(t, subgoal, task)
	assert.NotEqual(t, task, plan)
}
