// Package api defines wire-format types and converters for the HTTP control
// API. It translates orchestrator status, registry rows, dependency checks,
// and log events into transport-friendly DTOs so clients never couple to
// internal types.
//
// # Key Types
//
// RunStatus: state, counters, current language and stage, upload progress.
//
// DaemonStatus: serve process information plus the run and dependencies.
//
// ArtifactsResponse: recent runs, produced files, and upload results.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums are lowercase strings and timestamps
// use RFC3339 with milliseconds in UTC.
package api
