package engine

import (
	"github.com/phelanor/goalforge/internal/domain"
)

// jobOutcome is the aggregated terminal shape of a job: the status to
// transition to plus the result and error payloads to persist.
type jobOutcome struct {
	status domain.ProcessingStatus
	result *domain.JobResult
	err    *domain.JobError
}

// aggregateOutcomes merges the per-item outcomes into one of three
// terminal shapes: all-success, all-failure, or mixed. The result list
// always restores original submission order regardless of completion
// order or batch topology, and the mixed shape never drops either the
// successes or the failure list.
func aggregateOutcomes(outcomes []itemOutcome) jobOutcome {
	successes := make([]domain.GeneratedItem, 0, len(outcomes))
	failures := make([]domain.ItemFailure, 0)

	// Outcomes are indexed by original position, so a single pass
	// preserves submission order.
	for _, outcome := range outcomes {
		if outcome.succeeded() {
			successes = append(successes, *outcome.result)
			continue
		}

		failures = append(failures, domain.ItemFailure{
			ItemID:    outcome.item.ID,
			Position:  outcome.position,
			Code:      outcome.code,
			Message:   outcome.err.Error(),
			Retryable: outcome.retryable,
		})
	}

	// All items failed: no partial result, the job error summarizes the
	// first-encountered failure.
	if len(successes) == 0 && len(failures) > 0 {
		first := failures[0]
		return jobOutcome{
			status: domain.ProcessingStatusFailed,
			err: &domain.JobError{
				Code:      first.Code,
				Message:   first.Message,
				Retryable: first.Retryable,
			},
		}
	}

	result := &domain.JobResult{
		Items:   successes,
		Partial: len(failures) > 0,
	}

	// Mixed outcome: successes are kept, failed items are listed
	// separately so the caller can resubmit just the failed subset.
	if len(failures) > 0 {
		result.Failed = failures
	}

	return jobOutcome{
		status: domain.ProcessingStatusCompleted,
		result: result,
	}
}
