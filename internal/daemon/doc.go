// Package daemon runs the long-lived `serve` process.
//
// It wires configuration, the artifact registry, and the run orchestrator
// behind an HTTP control API (chi router, bearer-token auth, websocket log
// streaming) and watches the configuration file so edits apply to the next
// run without a restart.
//
// Keep orchestration logic in internal/orchestrator: the daemon focuses on
// startup, shutdown, request translation, and configuration reloads.
package daemon
