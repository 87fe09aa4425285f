// Package orchestrator drives a run: per language it transcodes, records the
// artifact and optionally uploads, honoring a cooperative cancel token.
//
// A Manager owns at most one run at a time. Start and UploadExisting validate
// the request synchronously, then hand the run to a single worker goroutine.
// Callers observe progress through Status and the log stream, and stop the
// run with Cancel, which is polled only at stage boundaries and between
// upload chunks. A flock lock file in the state directory keeps a second
// process from starting a concurrent run.
package orchestrator
