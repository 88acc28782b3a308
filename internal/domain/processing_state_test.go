package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessingState(t *testing.T) {
	t.Run("valid_state", func(t *testing.T) {
		ownerID, targetID := uuid.New(), uuid.New()

		state, err := NewProcessingState(ownerID, JobTypeSubgoals, targetID)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, state.ID)
		assert.Equal(t, ownerID, state.OwnerID)
		assert.Equal(t, targetID, state.TargetID)
		assert.Equal(t, ProcessingStatusPending, state.Status)
		assert.Equal(t, 0, state.Progress)
		assert.Nil(t, state.Result)
		assert.Nil(t, state.Error)
		assert.Nil(t, state.CompletedAt)
		assert.False(t, state.CreatedAt.IsZero())
	})

	t.Run("empty_owner_id", func(t *testing.T) {
		_, err := NewProcessingState(uuid.Nil, JobTypeSubgoals, uuid.New())
		assert.ErrorIs(t, err, ErrEmptyOwnerID)
	})

	t.Run("empty_target_id", func(t *testing.T) {
		_, err := NewProcessingState(uuid.New(), JobTypeTasks, uuid.Nil)
		assert.ErrorIs(t, err, ErrEmptyTargetID)
	})

	t.Run("unknown_job_type", func(t *testing.T) {
		_, err := NewProcessingState(uuid.New(), JobType("mystery"), uuid.New())
		assert.ErrorIs(t, err, ErrInvalidJobType)
	})
}

func TestProcessingStateTransitions(t *testing.T) {
	newState := func(t *testing.T) *ProcessingState {
		t.Helper()
		state, err := NewProcessingState(uuid.New(), JobTypePlan, uuid.New())
		require.NoError(t, err)
		return state
	}

	t.Run("pending_to_processing", func(t *testing.T) {
		state := newState(t)
		require.NoError(t, state.TransitionTo(ProcessingStatusProcessing))
		assert.Equal(t, ProcessingStatusProcessing, state.Status)
		assert.Nil(t, state.CompletedAt)
	})

	t.Run("pending_to_cancelled", func(t *testing.T) {
		state := newState(t)
		require.NoError(t, state.TransitionTo(ProcessingStatusCancelled))
		assert.NotNil(t, state.CompletedAt)
	})

	t.Run("pending_cannot_complete_directly", func(t *testing.T) {
		state := newState(t)
		assert.ErrorIs(t, state.TransitionTo(ProcessingStatusCompleted), ErrInvalidTransition)
	})

	t.Run("processing_to_each_terminal_status", func(t *testing.T) {
		for _, terminal := range []ProcessingStatus{
			ProcessingStatusCompleted,
			ProcessingStatusFailed,
			ProcessingStatusTimeout,
			ProcessingStatusCancelled,
		} {
			state := newState(t)
			require.NoError(t, state.TransitionTo(ProcessingStatusProcessing))
			require.NoError(t, state.TransitionTo(terminal))
			assert.Equal(t, terminal, state.Status)
			assert.NotNil(t, state.CompletedAt)
		}
	})

	t.Run("terminal_states_absorb_all_transitions", func(t *testing.T) {
		state := newState(t)
		require.NoError(t, state.TransitionTo(ProcessingStatusProcessing))
		require.NoError(t, state.TransitionTo(ProcessingStatusCompleted))

		for _, next := range []ProcessingStatus{
			ProcessingStatusPending,
			ProcessingStatusProcessing,
			ProcessingStatusFailed,
			ProcessingStatusTimeout,
			ProcessingStatusCancelled,
		} {
			err := state.TransitionTo(next)
			assert.ErrorIs(t, err, ErrTerminalState)
			assert.Equal(t, ProcessingStatusCompleted, state.Status)
		}
	})

	t.Run("unknown_status_rejected", func(t *testing.T) {
		state := newState(t)
		assert.ErrorIs(t, state.TransitionTo(ProcessingStatus("paused")), ErrInvalidStatus)
	})
}

func TestProcessingStateProgress(t *testing.T) {
	state, err := NewProcessingState(uuid.New(), JobTypeTasks, uuid.New())
	require.NoError(t, err)

	require.NoError(t, state.SetProgress(40))
	assert.Equal(t, 40, state.Progress)

	t.Run("progress_is_monotone", func(t *testing.T) {
		assert.ErrorIs(t, state.SetProgress(30), ErrProgressNotMonotone)
		assert.Equal(t, 40, state.Progress)
	})

	t.Run("progress_can_repeat", func(t *testing.T) {
		assert.NoError(t, state.SetProgress(40))
	})

	t.Run("progress_is_bounded", func(t *testing.T) {
		assert.ErrorIs(t, state.SetProgress(101), ErrInvalidProgress)
		assert.ErrorIs(t, state.SetProgress(-1), ErrInvalidProgress)
	})
}

func TestProcessingStatusIsTerminal(t *testing.T) {
	assert.False(t, ProcessingStatusPending.IsTerminal())
	assert.False(t, ProcessingStatusProcessing.IsTerminal())
	assert.True(t, ProcessingStatusCompleted.IsTerminal())
	assert.True(t, ProcessingStatusFailed.IsTerminal())
	assert.True(t, ProcessingStatusTimeout.IsTerminal())
	assert.True(t, ProcessingStatusCancelled.IsTerminal())
}

func TestIsValidJobType(t *testing.T) {
	assert.True(t, IsValidJobType(JobTypeSubgoals))
	assert.True(t, IsValidJobType(JobTypeTasks))
	assert.True(t, IsValidJobType(JobTypePlan))
	assert.False(t, IsValidJobType(JobType("")))
	assert.False(t, IsValidJobType(JobType("mystery")))
}
