// Package language normalizes the language codes used for per-language
// artifacts and audio stream metadata.
//
// Configured codes are BCP-47 tags ("he", "ru", "en"). Lookups return the
// ISO 639-2 code ffmpeg expects in stream metadata and an English display
// name for logs and the CLI.
package language
