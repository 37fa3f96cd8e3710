// Package config loads, normalizes, and validates caseintake configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CASEINTAKE_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: storage location, intake timing, scheduler cadence, the client
// polling contract, and the optional Redis lease.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
