// Package engine implements the asynchronous batch generation workflow:
// it partitions a job's work items into bounded batches, drives each item
// through the external generator under nested deadlines with classified
// retry, aggregates per-item outcomes into a single terminal result, and
// owns the persisted lifecycle record for every job.
//
// The Manager is the only component that mutates a ProcessingState; all
// other parts of the package communicate through return values.
package engine
