// Package metrics owns the Prometheus registry for caseintake: receive
// outcomes, batch tick results, breaker state, and HTTP request counts.
package metrics
