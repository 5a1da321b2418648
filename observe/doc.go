// Package observe provides observability primitives for cache operations.
//
// It wires OpenTelemetry tracing and metrics plus a JSON structured logger.
// The cache package runs every public operation through a Middleware so a
// single span, a duration sample and a log line are produced per call.
package observe
