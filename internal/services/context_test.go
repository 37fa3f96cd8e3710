package services_test

import (
	"context"
	"testing"

	"caseintake/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOrderID(ctx, "ORD-1")
	ctx = services.WithBatchID(ctx, "LOT-7")
	ctx = services.WithWorkerID(ctx, "worker-a")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.OrderIDFromContext(ctx); !ok || id != "ORD-1" {
		t.Fatalf("unexpected order id: %v %v", id, ok)
	}
	if id, ok := services.BatchIDFromContext(ctx); !ok || id != "LOT-7" {
		t.Fatalf("unexpected batch id: %v %v", id, ok)
	}
	if id, ok := services.WorkerIDFromContext(ctx); !ok || id != "worker-a" {
		t.Fatalf("unexpected worker id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankIDPreservesContext(t *testing.T) {
	ctx := services.WithBatchID(context.Background(), "")
	if _, ok := services.BatchIDFromContext(ctx); ok {
		t.Fatal("expected no batch value")
	}
}
