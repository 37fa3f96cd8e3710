package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"caseintake/internal/config"
)

const userAgent = "caseintake/1.0"

// Service defines the notification surface used by the batch coordinator.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, batchID, orderID string, resolved int) error
	NotifyBatchFailed(ctx context.Context, batchID, orderID, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Noop{}
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: cfg.NotificationTimeout()},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, batchID, orderID string, resolved int) error {
	return n.send(ctx, payload{
		title:   "caseintake - Batch Received",
		message: fmt.Sprintf("Batch %s (order %s) finished: %d case(s) resolved", strings.TrimSpace(batchID), strings.TrimSpace(orderID), resolved),
		tags:    []string{"caseintake", "batch", "completed"},
	})
}

func (n *ntfyService) NotifyBatchFailed(ctx context.Context, batchID, orderID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	return n.send(ctx, payload{
		title:    "caseintake - Batch Failed",
		message:  fmt.Sprintf("Batch %s (order %s) failed: %s\nReset the job after fixing the cause.", strings.TrimSpace(batchID), strings.TrimSpace(orderID), reason),
		tags:     []string{"caseintake", "batch", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "caseintake - Test",
		message:  "Notification system test",
		tags:     []string{"caseintake", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop discards every notification.
type Noop struct{}

func (Noop) NotifyBatchCompleted(context.Context, string, string, int) error { return nil }
func (Noop) NotifyBatchFailed(context.Context, string, string, string) error { return nil }
func (Noop) TestNotification(context.Context) error                          { return nil }
