package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/generation"
)

// ErrJobCancelled is returned by the scheduler when cancellation was
// observed at a batch boundary. In-flight items are allowed to finish;
// their results are discarded by the caller.
var ErrJobCancelled = errors.New("job cancelled")

// errorCodeBatchTimeout marks items that were still incomplete when
// their batch deadline expired.
const errorCodeBatchTimeout = "batch_timeout"

// BatchCount returns the number of batches needed for n items with the
// given batch size: ceil(n / size).
func BatchCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}

	return (n + size - 1) / size
}

// Partition splits items into ordered batches of at most size items,
// preserving original order both across and within batches, and stamps
// each item with its batch index and position.
func Partition(items []domain.WorkItem, size int) [][]domain.WorkItem {
	count := BatchCount(len(items), size)
	batches := make([][]domain.WorkItem, 0, count)

	for i := 0; i < count; i++ {
		start := i * size
		end := min(start+size, len(items))

		batch := make([]domain.WorkItem, end-start)
		for j := range batch {
			batch[j] = items[start+j]
			batch[j].BatchIndex = i
			batch[j].PositionInBatch = j
		}

		batches = append(batches, batch)
	}

	return batches
}

// itemOutcome is the per-item result record collected by the scheduler
// and folded into the job result by the aggregator. Position is the
// item's original submission index.
type itemOutcome struct {
	position  int
	item      domain.WorkItem
	result    *domain.GeneratedItem
	err       error
	code      string
	retryable bool
}

func (o itemOutcome) succeeded() bool {
	return o.err == nil
}

// scheduler drives one job's work items through the generator under the
// two-level concurrency caps and the batch and unit deadlines.
type scheduler struct {
	cfg       Config
	generator generation.Generator
	logger    *slog.Logger
	metrics   *Metrics

	// cancelled is sampled at batch boundaries only; a unit is never
	// interrupted mid-call.
	cancelled func() bool

	// onBatchDone is invoked at each batch completion checkpoint with the
	// cumulative number of finished items. May be nil.
	onBatchDone func(completed, total int)
}

// run executes all batches and returns one outcome per item, indexed by
// original submission position. It returns ErrJobCancelled when
// cancellation was observed at a batch boundary, or the context error
// when the surrounding deadline expired before dispatch completed.
func (s *scheduler) run(ctx context.Context, items []domain.WorkItem) ([]itemOutcome, error) {
	outcomes := make([]itemOutcome, len(items))
	if len(items) == 0 {
		return outcomes, nil
	}

	batches := Partition(items, s.cfg.MaxBatchSize)

	var completed atomic.Int64
	var sawCancel, sawExpiry atomic.Bool

	group := new(errgroup.Group)
	group.SetLimit(s.cfg.MaxConcurrentBatches)

	interrupted := error(nil)

	for index, batch := range batches {
		// Fast-path boundary checkpoint: stop queueing batches once
		// cancellation or the surrounding deadline is observed.
		if s.cancelled != nil && s.cancelled() {
			interrupted = ErrJobCancelled
			break
		}

		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}

		index, batch := index, batch
		group.Go(func() error {
			// The batch boundary proper: a batch that acquired its
			// concurrency slot after cancellation was requested does not
			// execute.
			if s.cancelled != nil && s.cancelled() {
				sawCancel.Store(true)
				return nil
			}

			if ctx.Err() != nil {
				sawExpiry.Store(true)
				return nil
			}

			s.runBatch(ctx, index, batch, outcomes)

			done := completed.Add(int64(len(batch)))
			if s.onBatchDone != nil {
				s.onBatchDone(int(done), len(items))
			}
			return nil
		})
	}

	// Wait for dispatched batches even when interrupted: in-flight work
	// finishes cooperatively and its results are discarded by the caller.
	_ = group.Wait()

	if interrupted == nil && sawCancel.Load() {
		interrupted = ErrJobCancelled
	}

	if interrupted == nil && sawExpiry.Load() {
		interrupted = ctx.Err()
	}

	if interrupted != nil {
		return nil, interrupted
	}

	return outcomes, nil
}

// runBatch executes one batch under its own deadline, recording an
// outcome for every item at its original position.
func (s *scheduler) runBatch(ctx context.Context, index int, batch []domain.WorkItem, outcomes []itemOutcome) {
	batchCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	logger := s.logger.With("batch_index", index, "batch_size", len(batch))
	logger.Debug("batch started")

	group := new(errgroup.Group)
	group.SetLimit(s.cfg.MaxConcurrentItemsPerBatch)

	for _, item := range batch {
		item := item
		position := index*s.cfg.MaxBatchSize + item.PositionInBatch

		group.Go(func() error {
			result, err := s.processItem(batchCtx, item)
			if result != nil {
				// Generators know nothing about batch topology, so the
				// original position is stamped here.
				result.Position = position
			}

			outcome := itemOutcome{position: position, item: item, result: result}
			if err != nil {
				kind := Classify(err)
				outcome.err = err
				outcome.code = kind.Code()
				outcome.retryable = kind.Retryable()

				// Items cut off by the batch deadline are reported as batch
				// timeouts, not generic transient failures.
				if batchCtx.Err() != nil && errors.Is(batchCtx.Err(), context.DeadlineExceeded) {
					outcome.err = fmt.Errorf("batch deadline exceeded: %w", err)
					outcome.code = errorCodeBatchTimeout
					outcome.retryable = true
				}

				logger.Warn("work item failed",
					"item_id", item.ID,
					"position", position,
					"code", outcome.code,
					"error", err)
			}

			outcomes[position] = outcome
			return nil
		})
	}

	// Group goroutines never return errors; outcomes carry the failures.
	_ = group.Wait()

	logger.Debug("batch finished")
}

// processItem runs one generator call per attempt under the unit
// deadline, retrying transient failures per the generator policy.
func (s *scheduler) processItem(ctx context.Context, item domain.WorkItem) (*domain.GeneratedItem, error) {
	var result *domain.GeneratedItem

	err := s.cfg.Retry.Generator.Do(ctx, func(ctx context.Context) error {
		unitCtx, cancel := context.WithTimeout(ctx, s.cfg.UnitTimeout)
		defer cancel()

		if s.metrics != nil {
			s.metrics.UnitsInFlight.Inc()
			defer s.metrics.UnitsInFlight.Dec()
		}

		generated, err := s.generator.GenerateItem(unitCtx, item)
		if err != nil {
			// A unit that exceeded its own deadline while the batch is
			// still alive is a transient failure eligible for retry.
			if unitCtx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("unit deadline exceeded: %w", err)
			}
			return err
		}

		result = generated
		return nil
	}, func(retry int, err error) {
		if s.metrics != nil {
			s.metrics.UnitRetriesTotal.Inc()
		}
		s.logger.Debug("retrying work item",
			"item_id", item.ID,
			"retry", retry,
			"error", err)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
