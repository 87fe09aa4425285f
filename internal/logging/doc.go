// Package logging builds the slog loggers used across sermonmux.
//
// The console handler renders a compact header line
// ("2006-01-02 15:04:05 INFO [component] Run 1a2b · RU (upload) – message")
// followed by bullet lines for the most useful attributes. The JSON handler
// is meant for log files. A StreamHub can be attached to publish every record
// to the control API's live log stream.
package logging
