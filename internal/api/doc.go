// Package api defines the client-facing intake service and its wire-format
// types. The daemon serves IntakeService over HTTP and the CLI renders the
// same DTOs, so both surfaces agree on field names and outcome strings.
//
// # Key Types
//
// ReceiveRequest/ReceiveResponse: one inline receive submission with
// per-token results and an outcome summary.
//
// BatchStatus: batch job view with the derived isStale flag.
//
// Overview: per-order stage counts and completion score.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for browser consumers. Enums are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds. Requests are
// checked with go-playground/validator before any store access; validation
// failures wrap services.ErrValidation so the HTTP layer can map them to 400.
package api
