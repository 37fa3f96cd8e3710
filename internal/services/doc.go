// Package services defines shared utilities consumed by the intake components
// and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp order, batch, worker, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (validation, not found, transient, fatal job) with errors.Is.
//
// Use these helpers when wiring new intake logic so error handling and
// observability stay uniform across the receive and batch paths.
package services
