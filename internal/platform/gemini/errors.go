package gemini

import "errors"

// Package-specific errors for the Gemini generator.
var (
	// ErrEmptyPayload is returned when a work item carries no prompt payload.
	ErrEmptyPayload = errors.New("work item payload cannot be empty")
)
