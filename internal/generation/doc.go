// Package generation provides the interface and error taxonomy for the
// external AI service that produces generated content for work items.
// It abstracts the details of LLM API integration (Gemini), allowing the
// workflow engine to drive generation without coupling to a specific
// external service.
package generation
