// Package logging assembles structured slog loggers and formatting helpers used
// across caseintake components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so intake code can tag log lines
// with order, batch, worker, and correlation identifiers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
