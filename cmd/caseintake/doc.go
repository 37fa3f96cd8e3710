// Package main hosts the caseintake CLI entrypoint and command graph.
//
// Commands open the intake database directly and drive the same
// api.IntakeService the daemon serves over HTTP: inline receives, batch job
// start, tick, reset, and status, the polling watch loop, order overviews,
// case imports, and configuration scaffolding. Job claims live in the
// database, so a CLI tick and a running daemon never process the same slice
// concurrently.
package main
