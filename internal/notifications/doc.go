// Package notifications publishes run events to ntfy.
//
// NewService returns a noop implementation when no topic is configured, so
// callers can publish unconditionally. Events are rendered into a title,
// body, tag list and priority before being POSTed to the topic URL.
package notifications
