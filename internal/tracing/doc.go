// Package tracing sets up OpenTelemetry for a pipeline run. Tracing is off by
// default; when enabled each pipeline stage becomes a span exported to stdout
// or appended as JSON lines to a file.
package tracing
