package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/platform/logger"
	"github.com/phelanor/goalforge/internal/store"
)

// PostgresProcessingStateStore implements the store.ProcessingStateStore
// interface using PostgreSQL. Result and error payloads are stored as JSONB.
type PostgresProcessingStateStore struct {
	db store.DBTX
}

// NewPostgresProcessingStateStore creates a new PostgresProcessingStateStore.
func NewPostgresProcessingStateStore(db store.DBTX) *PostgresProcessingStateStore {
	return &PostgresProcessingStateStore{
		db: db,
	}
}

// Verify PostgresProcessingStateStore implements store.ProcessingStateStore
var _ store.ProcessingStateStore = (*PostgresProcessingStateStore)(nil)

// Create saves a new processing state to the database. A unique violation
// on the active-job index means a non-terminal state already exists for
// the same (owner, job type, target) triple and maps to
// store.ErrActiveJobExists.
func (s *PostgresProcessingStateStore) Create(ctx context.Context, state *domain.ProcessingState) error {
	log := logger.FromContext(ctx)

	if err := state.Validate(); err != nil {
		return err
	}

	resultJSON, errorJSON, err := marshalPayloads(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO processing_states
			(id, owner_id, job_type, status, target_id, progress, result, error, retry_count, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		state.ID,
		state.OwnerID,
		state.JobType,
		state.Status,
		state.TargetID,
		state.Progress,
		resultJSON,
		errorJSON,
		state.RetryCount,
		state.CreatedAt,
		state.UpdatedAt,
		state.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("active job already exists for target",
				"owner_id", state.OwnerID,
				"job_type", state.JobType,
				"target_id", state.TargetID)
			return fmt.Errorf("%w: %v", store.ErrActiveJobExists, err)
		}
		log.Error("failed to create processing state",
			"state_id", state.ID,
			"error", err)
		return fmt.Errorf("failed to create processing state: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves a processing state by its unique ID.
func (s *PostgresProcessingStateStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessingState, error) {
	query := `
		SELECT id, owner_id, job_type, status, target_id, progress, result, error, retry_count, created_at, updated_at, completed_at
		FROM processing_states
		WHERE id = $1
	`

	row := s.db.QueryRowContext(ctx, query, id)
	state, err := scanProcessingState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get processing state: %w", err)
	}

	return state, nil
}

// Update saves changes to an existing processing state.
func (s *PostgresProcessingStateStore) Update(ctx context.Context, state *domain.ProcessingState) error {
	log := logger.FromContext(ctx)

	if err := state.Validate(); err != nil {
		return err
	}

	resultJSON, errorJSON, err := marshalPayloads(state)
	if err != nil {
		return err
	}

	query := `
		UPDATE processing_states
		SET status = $1, progress = $2, result = $3, error = $4, retry_count = $5, updated_at = $6, completed_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		state.Status,
		state.Progress,
		resultJSON,
		errorJSON,
		state.RetryCount,
		state.UpdatedAt,
		state.CompletedAt,
		state.ID,
	)
	if err != nil {
		log.Error("failed to update processing state",
			"state_id", state.ID,
			"status", state.Status,
			"error", err)
		return fmt.Errorf("failed to update processing state: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "processing state"); err != nil {
		return store.ErrStateNotFound
	}

	return nil
}

// FindActive retrieves the non-terminal processing state for the given
// owner, job type and target, if one exists.
func (s *PostgresProcessingStateStore) FindActive(
	ctx context.Context,
	ownerID uuid.UUID,
	jobType domain.JobType,
	targetID uuid.UUID,
) (*domain.ProcessingState, error) {
	query := `
		SELECT id, owner_id, job_type, status, target_id, progress, result, error, retry_count, created_at, updated_at, completed_at
		FROM processing_states
		WHERE owner_id = $1 AND job_type = $2 AND target_id = $3
		  AND status IN ('pending', 'processing')
	`

	row := s.db.QueryRowContext(ctx, query, ownerID, jobType, targetID)
	state, err := scanProcessingState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to find active processing state: %w", err)
	}

	return state, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProcessingState scans a processing state row, decoding the JSONB
// result and error columns when present.
func scanProcessingState(row rowScanner) (*domain.ProcessingState, error) {
	var state domain.ProcessingState
	var resultJSON, errorJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&state.ID,
		&state.OwnerID,
		&state.JobType,
		&state.Status,
		&state.TargetID,
		&state.Progress,
		&resultJSON,
		&errorJSON,
		&state.RetryCount,
		&state.CreatedAt,
		&state.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		state.CompletedAt = &t
	}

	if len(resultJSON) > 0 {
		var result domain.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to decode result payload: %w", err)
		}
		state.Result = &result
	}

	if len(errorJSON) > 0 {
		var jobErr domain.JobError
		if err := json.Unmarshal(errorJSON, &jobErr); err != nil {
			return nil, fmt.Errorf("failed to decode error payload: %w", err)
		}
		state.Error = &jobErr
	}

	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()

	return &state, nil
}

// marshalPayloads encodes the state's result and error for the JSONB
// columns. Nil payloads become SQL NULL.
func marshalPayloads(state *domain.ProcessingState) (resultJSON, errorJSON interface{}, err error) {
	if state.Result != nil {
		data, merr := json.Marshal(state.Result)
		if merr != nil {
			return nil, nil, fmt.Errorf("failed to encode result payload: %w", merr)
		}
		resultJSON = data
	}

	if state.Error != nil {
		data, merr := json.Marshal(state.Error)
		if merr != nil {
			return nil, nil, fmt.Errorf("failed to encode error payload: %w", merr)
		}
		errorJSON = data
	}

	return resultJSON, errorJSON, nil
}
