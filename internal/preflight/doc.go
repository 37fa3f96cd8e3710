// Package preflight provides readiness checks for the paths and services
// caseintake depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start when a required
//     check fails.
//   - The CLI "caseintake health" command prints every result.
//
// The Redis check only runs when lock.redis_address is configured.
package preflight
