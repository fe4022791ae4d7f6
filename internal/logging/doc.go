// Package logging assembles structured slog loggers and formatting helpers used
// across the importer.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and tees records into the JSON-lines processing log when enabled. Context
// helpers tag log lines with the run id, source name, and book label so a single
// import can be followed end to end. A no-op logger is provided for tests.
package logging
