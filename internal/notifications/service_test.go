package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"caseintake/internal/config"
	"caseintake/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if _, ok := svc.(notifications.Noop); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.NotifyBatchFailed(context.Background(), "B-1", "ORD-1", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, tags, priority, body string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.RequestTimeoutSeconds = 5
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyBatchCompleted(ctx, "B-1", "ORD-1", 42); err != nil {
		t.Fatalf("NotifyBatchCompleted: %v", err)
	}
	if err := svc.NotifyBatchFailed(ctx, "B-2", "ORD-1", "3 of 3 cases failed: store unavailable"); err != nil {
		t.Fatalf("NotifyBatchFailed: %v", err)
	}

	if len(*got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*got))
	}
	done := (*got)[0]
	if done.title != "caseintake - Batch Received" || done.tags != "caseintake,batch,completed" {
		t.Fatalf("unexpected completion headers: %+v", done)
	}
	if done.body != "Batch B-1 (order ORD-1) finished: 42 case(s) resolved" {
		t.Fatalf("unexpected completion body %q", done.body)
	}
	failed := (*got)[1]
	if failed.priority != "high" {
		t.Fatalf("expected high priority failure, got %q", failed.priority)
	}
	if !strings.Contains(failed.body, "store unavailable") {
		t.Fatalf("expected failure reason in body, got %q", failed.body)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
