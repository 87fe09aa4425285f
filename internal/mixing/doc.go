// Package mixing turns translation-primary windows into per-frame volume
// automation for the original and translation audio sources and composes the
// ffmpeg filter graph that mixes them into a single stream.
//
// Everything here is pure data transformation. Invalid windows must be
// rejected by package segments before they reach this package.
package mixing
