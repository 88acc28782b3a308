package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/generation"
	"github.com/phelanor/goalforge/internal/store"
)

// Common errors
var (
	ErrNilStateStore = errors.New("processing state store cannot be nil")
	ErrNilWorkSource = errors.New("work source cannot be nil")
	ErrNilGenerator  = errors.New("generator cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
)

// Error codes recorded on job-level failures.
const (
	errorCodeWorkflowTimeout = "workflow_timeout"
	errorCodeWorkSource      = "work_source_error"
)

// terminalWriteTimeout bounds the persistence write that records a
// terminal status. It runs on a fresh context so an expired workflow
// deadline cannot prevent the terminal state from being recorded.
const terminalWriteTimeout = 30 * time.Second

// jobHandle tracks one running job. The mutex serializes every mutation
// of the job's ProcessingState; the cancelled flag is the cooperative
// cancellation signal sampled at batch boundaries.
type jobHandle struct {
	mu        sync.Mutex
	cancelled atomic.Bool
}

// Manager owns the persisted lifecycle record for every generation job.
// It is the single writer for ProcessingState records: all other engine
// components communicate through return values and never touch shared
// state.
type Manager struct {
	cfg       Config
	states    store.ProcessingStateStore
	source    store.WorkSource
	generator generation.Generator
	logger    *slog.Logger
	metrics   *Metrics

	mu   sync.Mutex
	jobs map[uuid.UUID]*jobHandle

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a Manager with the given collaborators. The
// configuration is validated eagerly; an invalid combination is a
// startup error, not a runtime condition. metrics may be nil.
func NewManager(
	cfg Config,
	states store.ProcessingStateStore,
	source store.WorkSource,
	generator generation.Generator,
	logger *slog.Logger,
	metrics *Metrics,
) (*Manager, error) {
	if states == nil {
		return nil, ErrNilStateStore
	}
	if source == nil {
		return nil, ErrNilWorkSource
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		cfg:       cfg,
		states:    states,
		source:    source,
		generator: generator,
		logger:    logger,
		metrics:   metrics,
		jobs:      make(map[uuid.UUID]*jobHandle),
		baseCtx:   ctx,
		cancel:    cancel,
	}, nil
}

// Submit creates a pending ProcessingState for the given owner, job type
// and target and begins processing it in the background. It rejects the
// submission with store.ErrActiveJobExists when a non-terminal record
// already exists for the same triple.
func (m *Manager) Submit(ctx context.Context, ownerID uuid.UUID, jobType domain.JobType, targetID uuid.UUID) (uuid.UUID, error) {
	if !domain.IsValidJobType(jobType) {
		return uuid.Nil, domain.ErrInvalidJobType
	}

	existing, err := m.states.FindActive(ctx, ownerID, jobType, targetID)
	if err != nil && !store.IsNotFoundError(err) {
		return uuid.Nil, fmt.Errorf("failed to check for active job: %w", err)
	}
	if existing != nil {
		return uuid.Nil, fmt.Errorf("%w: job %s", store.ErrActiveJobExists, existing.ID)
	}

	state, err := domain.NewProcessingState(ownerID, jobType, targetID)
	if err != nil {
		return uuid.Nil, err
	}

	if err := m.states.Create(ctx, state); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create processing state: %w", err)
	}

	handle := &jobHandle{}
	m.mu.Lock()
	m.jobs[state.ID] = handle
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(state, handle)

	m.logger.Info("job submitted",
		"job_id", state.ID,
		"job_type", state.JobType,
		"target_id", state.TargetID)

	return state.ID, nil
}

// GetStatus returns a read-only snapshot of the processing state. It
// never blocks on in-flight work.
func (m *Manager) GetStatus(ctx context.Context, id uuid.UUID) (*domain.ProcessingState, error) {
	return m.states.GetByID(ctx, id)
}

// Cancel requests cooperative cancellation of the job. The signal is
// observed at the next batch boundary; in-flight units are allowed to
// finish and their results are discarded. Cancelling a terminal or
// unknown-but-finished job is a no-op.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) error {
	state, err := m.states.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if state.IsTerminal() {
		m.logger.Debug("cancel ignored, job already terminal",
			"job_id", id, "status", state.Status)
		return nil
	}

	m.mu.Lock()
	handle, ok := m.jobs[id]
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("cancel requested for job with no running workflow", "job_id", id)
		return nil
	}

	handle.cancelled.Store(true)
	m.logger.Info("job cancellation requested", "job_id", id)
	return nil
}

// Stop shuts the manager down and waits for running jobs to observe the
// shutdown at their next checkpoint.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

type scheduleResult struct {
	outcomes []itemOutcome
	err      error
}

// run drives one job from pending to a terminal status. It is the only
// goroutine that mutates the job's ProcessingState.
func (m *Manager) run(state *domain.ProcessingState, handle *jobHandle) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.jobs, state.ID)
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(m.baseCtx, m.cfg.WorkflowTimeout)
	defer cancel()

	logger := m.logger.With(
		"job_id", state.ID,
		"job_type", state.JobType,
		"target_id", state.TargetID)

	// Entering the dispatch path moves the job out of pending.
	if err := m.transition(ctx, state, handle, domain.ProcessingStatusProcessing); err != nil {
		logger.Error("failed to start processing", "error", err)
		return
	}

	items, err := m.fetchWorkItems(ctx, state, handle)
	if err != nil {
		kind := Classify(err)
		logger.Error("failed to retrieve work items", "error", err, "kind", kind.String())
		m.finalizeError(state, handle, domain.ProcessingStatusFailed, &domain.JobError{
			Code:      errorCodeWorkSource,
			Message:   err.Error(),
			Retryable: kind.Retryable(),
		})
		return
	}

	logger.Info("work items retrieved",
		"item_count", len(items),
		"batch_count", BatchCount(len(items), m.cfg.MaxBatchSize))

	sched := &scheduler{
		cfg:       m.cfg,
		generator: m.generator,
		logger:    logger,
		metrics:   m.metrics,
		cancelled: handle.cancelled.Load,
		onBatchDone: func(completed, total int) {
			m.advanceProgress(ctx, state, handle, completed, total)
		},
	}

	resultCh := make(chan scheduleResult, 1)
	go func() {
		outcomes, err := sched.run(ctx, items)
		resultCh <- scheduleResult{outcomes: outcomes, err: err}
	}()

	select {
	case <-ctx.Done():
		if m.baseCtx.Err() != nil {
			// Manager shutdown: leave the record in processing for a
			// later recovery pass rather than inventing a failure.
			logger.Info("job interrupted by shutdown")
			return
		}

		// Workflow deadline exceeded: freeze progress, discard whatever
		// is still running.
		logger.Warn("workflow deadline exceeded", "timeout", m.cfg.WorkflowTimeout)
		m.finalizeError(state, handle, domain.ProcessingStatusTimeout, &domain.JobError{
			Code:      errorCodeWorkflowTimeout,
			Message:   fmt.Sprintf("workflow deadline of %s exceeded", m.cfg.WorkflowTimeout),
			Retryable: true,
		})

		go func() {
			res := <-resultCh
			logger.Info("discarding late result for terminal job",
				"outcome_count", len(res.outcomes),
				"error", res.err)
		}()
		return

	case res := <-resultCh:
		switch {
		case errors.Is(res.err, ErrJobCancelled):
			logger.Info("job cancelled at batch boundary, discarding in-flight results")
			m.finalizeError(state, handle, domain.ProcessingStatusCancelled, nil)

		case res.err != nil && m.baseCtx.Err() != nil:
			logger.Info("job interrupted by shutdown")

		case res.err != nil:
			// The scheduler observed the workflow deadline at a batch
			// boundary before the select did.
			logger.Warn("workflow interrupted", "error", res.err)
			m.finalizeError(state, handle, domain.ProcessingStatusTimeout, &domain.JobError{
				Code:      errorCodeWorkflowTimeout,
				Message:   fmt.Sprintf("workflow deadline of %s exceeded", m.cfg.WorkflowTimeout),
				Retryable: true,
			})

		default:
			outcome := aggregateOutcomes(res.outcomes)
			m.finalizeOutcome(state, handle, outcome, logger)
		}
	}
}

// fetchWorkItems reads the job's work items under the retrieval retry
// policy. Workflow-level retries are the ones that count against the
// persisted RetryCount; the unit-level retry sub-loop never touches it.
func (m *Manager) fetchWorkItems(ctx context.Context, state *domain.ProcessingState, handle *jobHandle) ([]domain.WorkItem, error) {
	var items []domain.WorkItem

	err := m.cfg.Retry.Retrieval.Do(ctx, func(ctx context.Context) error {
		fetched, err := m.source.ListWorkItems(ctx, state.JobType, state.TargetID)
		if err != nil {
			return err
		}
		items = fetched
		return nil
	}, func(retry int, err error) {
		handle.mu.Lock()
		state.RetryCount++
		handle.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// advanceProgress records batch completion progress. Progress holds at
// 99 until the job is finalized so a value of 100 always coincides with
// a terminal write.
func (m *Manager) advanceProgress(ctx context.Context, state *domain.ProcessingState, handle *jobHandle, completed, total int) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if state.IsTerminal() {
		return
	}

	progress := completed * 100 / total
	if progress > 99 {
		progress = 99
	}

	if err := state.SetProgress(progress); err != nil {
		return
	}

	if err := m.persist(ctx, state, handle); err != nil {
		m.logger.Error("failed to persist progress",
			"job_id", state.ID,
			"progress", progress,
			"error", err)
	}
}

// finalizeOutcome applies the aggregated result and transitions the job
// to its terminal status.
func (m *Manager) finalizeOutcome(state *domain.ProcessingState, handle *jobHandle, outcome jobOutcome, logger *slog.Logger) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if err := state.TransitionTo(outcome.status); err != nil {
		logger.Warn("discarding late result for terminal job",
			"status", state.Status, "error", err)
		return
	}

	state.Result = outcome.result
	state.Error = outcome.err

	if outcome.status == domain.ProcessingStatusCompleted {
		_ = state.SetProgress(100)
	}

	if err := m.persistTerminal(state, handle); err != nil {
		logger.Error("failed to persist terminal state", "error", err)
	}

	m.metrics.observeTerminal(string(state.JobType), string(state.Status))

	partial := outcome.result != nil && outcome.result.Partial
	logger.Info("job finished",
		"status", state.Status,
		"partial", partial,
		"retry_count", state.RetryCount)
}

// finalizeError transitions the job to a terminal failure status.
// Progress is left untouched: the last observed value stays frozen.
func (m *Manager) finalizeError(state *domain.ProcessingState, handle *jobHandle, status domain.ProcessingStatus, jobErr *domain.JobError) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if err := state.TransitionTo(status); err != nil {
		m.logger.Warn("discarding transition for terminal job",
			"job_id", state.ID,
			"status", state.Status,
			"attempted", status,
			"error", err)
		return
	}

	state.Error = jobErr

	if err := m.persistTerminal(state, handle); err != nil {
		m.logger.Error("failed to persist terminal state",
			"job_id", state.ID, "error", err)
	}

	m.metrics.observeTerminal(string(state.JobType), string(state.Status))
}

// persist writes the state under the persistence retry policy. Retries
// count against the job's RetryCount. Callers must hold handle.mu.
func (m *Manager) persist(ctx context.Context, state *domain.ProcessingState, handle *jobHandle) error {
	return m.cfg.Retry.Persistence.Do(ctx, func(ctx context.Context) error {
		return m.states.Update(ctx, state)
	}, func(retry int, err error) {
		state.RetryCount++
	})
}

// persistTerminal writes a terminal state on a fresh context so expired
// workflow deadlines cannot lose the terminal transition.
func (m *Manager) persistTerminal(state *domain.ProcessingState, handle *jobHandle) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.baseCtx), terminalWriteTimeout)
	defer cancel()

	return m.persist(ctx, state, handle)
}

// transition moves the state to status under the handle lock and
// persists the change.
func (m *Manager) transition(ctx context.Context, state *domain.ProcessingState, handle *jobHandle, status domain.ProcessingStatus) error {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if err := state.TransitionTo(status); err != nil {
		return err
	}

	return m.persist(ctx, state, handle)
}
