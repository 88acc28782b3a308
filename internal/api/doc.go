// Package api contains the HTTP handlers fronting the generation engine.
// The surface is deliberately thin: handlers validate and decode requests,
// delegate to the engine manager, and map its errors to status codes.
// No generation semantics live here.
package api
