// Package logging assembles the structured slog loggers used by recorder2rc.
//
// It owns the console and JSON handlers, routes output to the terminal and the
// per-user log file, and exposes context-aware helpers so pipeline code tags
// every line with the run identifier, chapter, and stage it belongs to. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
