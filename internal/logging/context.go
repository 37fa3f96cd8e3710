package logging

import (
	"context"
	"log/slog"

	"caseintake/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldOrderID is the standardized key for order identifiers.
	FieldOrderID = "order_id"
	// FieldBatchID is the standardized key for manufacturing batch identifiers.
	FieldBatchID = "batch_id"
	// FieldWorkerID is the standardized key for the coordinator worker identity.
	FieldWorkerID = "worker_id"
	// FieldWarehouseID is the standardized key for warehouse organization identifiers.
	FieldWarehouseID = "warehouse_org_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "tick_failed").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.OrderIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOrderID, id))
	}
	if id, ok := services.BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if id, ok := services.WorkerIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkerID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
