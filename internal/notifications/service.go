package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunegrab/internal/config"
)

const userAgent = "tunegrab/1"

// BatchReport is the slice of a finished batch a notification describes.
type BatchReport struct {
	BatchID   string
	Status    string
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Rejected  int
	Elapsed   time.Duration
	// FailedIDs lists failed identifiers; only the first few are shown.
	FailedIDs []string
}

// Service sends user-facing notifications.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, report BatchReport) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.NotifyOnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

const maxListedFailures = 5

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, report BatchReport) error {
	clean := report.Failed == 0 && report.Status == "completed"
	if clean && !n.onSuccess {
		return nil
	}

	elapsed := max(report.Elapsed.Round(time.Second), 0)
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d acquired", report.Completed, report.Total)
	if report.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", report.Skipped)
	}
	if report.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", report.Failed)
	}
	if report.Rejected > 0 {
		fmt.Fprintf(&b, ", %d rejected", report.Rejected)
	}
	fmt.Fprintf(&b, " in %s", elapsed)
	if len(report.FailedIDs) > 0 {
		shown := report.FailedIDs
		if len(shown) > maxListedFailures {
			shown = shown[:maxListedFailures]
		}
		b.WriteString("\nFailed: ")
		b.WriteString(strings.Join(shown, ", "))
		if extra := len(report.FailedIDs) - len(shown); extra > 0 {
			fmt.Fprintf(&b, " (+%d more)", extra)
		}
	}

	data := payload{
		title:   "tunegrab - Batch Complete",
		message: b.String(),
		tags:    []string{"tunegrab", "batch", "completed"},
	}
	switch {
	case report.Status != "" && report.Status != "completed":
		data.title = "tunegrab - Batch " + strings.ReplaceAll(report.Status, "_", " ")
		data.tags = []string{"tunegrab", "batch", report.Status}
		data.priority = "high"
	case report.Failed > 0:
		data.title = "tunegrab - Batch Complete (with errors)"
		data.tags = []string{"tunegrab", "batch", "failed"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var b strings.Builder
	b.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		b.WriteString(" during ")
		b.WriteString(contextLabel)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "tunegrab - Error",
		message:  b.String(),
		tags:     []string{"tunegrab", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "tunegrab - Test",
		message:  "Notification system test",
		tags:     []string{"tunegrab", "test"},
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

type noopService struct{}

func (noopService) NotifyBatchCompleted(context.Context, BatchReport) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }

// Enabled reports whether svc actually delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}
