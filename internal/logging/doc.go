// Package logging assembles structured slog loggers and formatting helpers used
// across tunegrab.
//
// It owns the console and JSON handlers, tees records into per-run log files,
// and exposes context-aware helpers so pipeline code can tag log lines with
// batch IDs, media IDs, and stages. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
