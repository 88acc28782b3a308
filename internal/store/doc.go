// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying storage mechanism from the
// workflow engine, allowing the engine's core logic to remain independent
// of specific database technologies or persistence details.
package store
