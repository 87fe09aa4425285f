// Package config loads, normalizes, and validates sermonmux configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours environment fallbacks such as
// SERMONMUX_OUTPUT_DIR. The Config type centralizes every knob the CLI, the
// orchestrator and the control API need.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical language codes, and clear validation errors.
package config
