package services

import "context"

type contextKey string

const (
	orderIDKey   contextKey = "order_id"
	batchIDKey   contextKey = "batch_id"
	workerIDKey  contextKey = "worker_id"
	requestIDKey contextKey = "request_id"
)

// WithOrderID annotates context with the order identifier.
func WithOrderID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, orderIDKey, id)
}

// OrderIDFromContext extracts the order identifier if present.
func OrderIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, orderIDKey)
}

// WithBatchID annotates context with the batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext returns the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, batchIDKey)
}

// WithWorkerID annotates context with the coordinator worker identity.
func WithWorkerID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, workerIDKey, id)
}

// WorkerIDFromContext returns the worker identity if present.
func WorkerIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, workerIDKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
