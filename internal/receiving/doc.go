// Package receiving classifies scanned master codes against authoritative case
// state and performs the idempotent receive transition.
//
// Classify returns exactly one Result per submitted token, in submission
// order. Business conditions (unknown code, wrong order, already received)
// are outcomes, never errors; infrastructure failures are contained per token
// and surface as the error outcome so a large mixed submission always runs to
// completion. The only mutation is a compare-and-set from a receive-eligible
// status to received_warehouse, so repeated or concurrent submissions of the
// same code resolve to already_received instead of double counting.
package receiving
