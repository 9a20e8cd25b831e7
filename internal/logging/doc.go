// Package logging assembles structured slog loggers and formatting helpers used
// across videotable.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with batch IDs, array names, stages, and run IDs. When a log directory
// is configured every record is also appended as JSON to videotable.log. The
// package provides a no-op logger for tests and wiring code that cannot fail.
package logging
