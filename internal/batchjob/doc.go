// Package batchjob advances large intake batches across repeated, externally
// triggered ticks.
//
// Each batch owns one job record with a status, a heartbeat, and a progress
// count. A tick claims the job with a compare-and-set on its owner and
// heartbeat, runs one bounded slice of still-eligible cases through the
// receive classifier, records progress, and releases the claim. Ticks may
// overlap or repeat freely: the claim keeps two workers from sharing a slice,
// and the per-case receive transition is idempotent. A worker that disappears
// mid-tick leaves a heartbeat that goes stale, after which any poller may
// take the job over. Reset returns a job to idle and never touches cases.
package batchjob
