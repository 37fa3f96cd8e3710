// Package store persists master cases, batches, batch jobs, and the movement
// log in SQLite.
//
// Every status write is a compare-and-set: master case transitions only apply
// when the stored status is still one of the expected pre-states, and batch
// job writes that belong to a tick are scoped to the claiming worker. Writes
// retry on SQLITE_BUSY with a short backoff so concurrent pollers and the
// daemon scheduler can share one database file.
package store
