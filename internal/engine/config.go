package engine

import (
	"fmt"
	"time"
)

// Default concurrency caps and deadlines. Total concurrent generator
// calls are bounded by MaxConcurrentBatches * MaxConcurrentItemsPerBatch.
const (
	DefaultMaxBatchSize               = 8
	DefaultMaxConcurrentBatches       = 3
	DefaultMaxConcurrentItemsPerBatch = 8

	DefaultUnitTimeout     = 120 * time.Second
	DefaultBatchTimeout    = 300 * time.Second
	DefaultWorkflowTimeout = 900 * time.Second
)

// Config is the immutable engine configuration, constructed once at
// process start, validated eagerly, and passed explicitly into the
// manager rather than read from ambient globals.
type Config struct {
	// MaxBatchSize is the maximum number of work items per batch.
	MaxBatchSize int

	// MaxConcurrentBatches bounds how many batches execute simultaneously.
	MaxConcurrentBatches int

	// MaxConcurrentItemsPerBatch bounds how many items execute
	// simultaneously within one batch.
	MaxConcurrentItemsPerBatch int

	// UnitTimeout bounds a single external generator call. Exceeding it
	// is a transient failure eligible for retry.
	UnitTimeout time.Duration

	// BatchTimeout bounds one batch's full parallel execution. Exceeding
	// it fails every still-incomplete item in the batch; completed items
	// keep their results.
	BatchTimeout time.Duration

	// WorkflowTimeout bounds the whole job. Exceeding it is terminal.
	WorkflowTimeout time.Duration

	// Retry holds the per-operation-class retry policies.
	Retry RetryPolicies
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:               DefaultMaxBatchSize,
		MaxConcurrentBatches:       DefaultMaxConcurrentBatches,
		MaxConcurrentItemsPerBatch: DefaultMaxConcurrentItemsPerBatch,
		UnitTimeout:                DefaultUnitTimeout,
		BatchTimeout:               DefaultBatchTimeout,
		WorkflowTimeout:            DefaultWorkflowTimeout,
		Retry:                      DefaultRetryPolicies(),
	}
}

// Validate checks the configuration and fails fast on any invalid
// combination, including deadlines that violate unit <= batch <= workflow.
func (c Config) Validate() error {
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be at least 1, got %d", c.MaxBatchSize)
	}

	if c.MaxConcurrentBatches < 1 {
		return fmt.Errorf("max concurrent batches must be at least 1, got %d",
			c.MaxConcurrentBatches)
	}

	if c.MaxConcurrentItemsPerBatch < 1 {
		return fmt.Errorf("max concurrent items per batch must be at least 1, got %d",
			c.MaxConcurrentItemsPerBatch)
	}

	if c.UnitTimeout <= 0 {
		return fmt.Errorf("unit timeout must be positive, got %s", c.UnitTimeout)
	}

	if c.UnitTimeout > c.BatchTimeout {
		return fmt.Errorf("unit timeout %s exceeds batch timeout %s",
			c.UnitTimeout, c.BatchTimeout)
	}

	if c.BatchTimeout > c.WorkflowTimeout {
		return fmt.Errorf("batch timeout %s exceeds workflow timeout %s",
			c.BatchTimeout, c.WorkflowTimeout)
	}

	if err := c.Retry.Validate(); err != nil {
		return err
	}

	return nil
}
