// Package notifications posts batch job outcomes to an ntfy topic.
//
// NewService returns a no-op notifier when no topic is configured, so the
// batch coordinator can call it unconditionally. Delivery failures are the
// caller's to log; a missed notification never changes job state.
package notifications
