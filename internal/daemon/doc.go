// Package daemon coordinates the long-running caseintaked process.
//
// It wires configuration, the SQLite store, the receive classifier, the batch
// coordinator and its scheduler, and the HTTP API into a single lifecycle
// with flock-based locking to prevent multiple instances on one data
// directory. Multi-host deployments rely on the job claim in the store, and
// optionally a Redis lease, rather than the file lock.
//
// Keep orchestration logic here: intake semantics live in their own packages
// while the daemon focuses on startup, shutdown, and transport.
package daemon
