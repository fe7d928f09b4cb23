// Package logging provides a structured logging system for svccore that
// supports both CLI and TUI execution modes with unified log handling.
//
// # Execution modes
//
//   - CLI mode: logs are written directly to the configured output writer
//     via slog.TextHandler, with level filtering at the handler.
//   - TUI mode: logs are sent to a buffered channel for a terminal UI to
//     consume and render itself; a full channel falls back to stderr
//     rather than blocking the caller.
//
// # Usage
//
//	import "svccore/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("controller", "service %q entered UP", name)
//	logging.Warn("container", "executor saturated, running inline")
//	logging.Error("manifest", err, "failed to install %q", name)
//
// # Subsystems
//
// Log calls take a subsystem string as their first argument so output can
// be filtered and categorized; callers in this module use "controller" and
// "cli".
//
// # Audit events
//
// Audit logs a structured, always-INFO-level record for security- or
// operationally-sensitive actions (mode changes, forced removals) with a
// filterable [AUDIT] prefix.
package logging
