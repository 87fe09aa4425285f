// Package services defines shared utilities consumed by the run stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, languages, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap and Classify helpers that keep
//     failure handling uniform: configuration problems stop a run before it
//     starts, a missing media engine faults the run, and engine, IO, and
//     transport failures stay local to one language.
package services
