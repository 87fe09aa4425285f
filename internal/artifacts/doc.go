// Package artifacts names per-language output files and keeps a SQLite
// registry of runs, produced artifacts and upload results.
//
// The registry lets "upload existing" find files produced by an earlier
// process, and backs the artifact listings in the CLI and control API.
package artifacts
