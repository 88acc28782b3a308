// Package gemini implements the generation.Generator interface using
// Google's Gemini API. The generator makes exactly one API call per work
// item and classifies failures with the generation package's sentinel
// errors; retry and backoff decisions belong to the caller.
package gemini
