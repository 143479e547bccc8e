// Package logging builds the slog loggers used across the launcher.
//
// Two handler formats are available: a compact console format (timestamp,
// level, message, k=v attributes) for interactive runs and standard JSON for
// automation. Writers fan out to any combination of stdout, stderr, and
// files; the CLI points them at the launcher log file so stdout stays free
// for one-line confirmations.
package logging
