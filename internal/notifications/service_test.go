package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tunegrab/internal/config"
	"tunegrab/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func configFor(topic string, onSuccess bool) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.NotifyOnSuccess = onSuccess
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor("", true))
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service")
	}
	if err := svc.NotifyBatchCompleted(context.Background(), notifications.BatchReport{Failed: 1}); err != nil {
		t.Fatalf("noop returned %v", err)
	}
}

func TestBatchCompletedPayloads(t *testing.T) {
	tests := []struct {
		name         string
		report       notifications.BatchReport
		onSuccess    bool
		wantSent     bool
		wantTitle    string
		wantBody     string
		wantTags     string
		wantPriority string
	}{
		{
			name:   "clean batch suppressed by default",
			report: notifications.BatchReport{Status: "completed", Total: 2, Completed: 2},
		},
		{
			name:      "clean batch when enabled",
			report:    notifications.BatchReport{Status: "completed", Total: 2, Completed: 1, Skipped: 1, Elapsed: 1500 * time.Millisecond},
			onSuccess: true,
			wantSent:  true,
			wantTitle: "tunegrab - Batch Complete",
			wantBody:  "1 of 2 acquired, 1 skipped in 2s",
			wantTags:  "tunegrab,batch,completed",
		},
		{
			name: "failures listed",
			report: notifications.BatchReport{
				Status: "completed", Total: 7, Completed: 0, Failed: 7, Rejected: 1,
				FailedIDs: []string{"a", "b", "c", "d", "e", "f", "g"},
			},
			wantSent:  true,
			wantTitle: "tunegrab - Batch Complete (with errors)",
			wantBody:  "0 of 7 acquired, 7 failed, 1 rejected in 0s\nFailed: a, b, c, d, e (+2 more)",
			wantTags:  "tunegrab,batch,failed",
		},
		{
			name:         "timed out",
			report:       notifications.BatchReport{Status: "timed_out", Total: 3, Completed: 1},
			wantSent:     true,
			wantTitle:    "tunegrab - Batch timed out",
			wantBody:     "1 of 3 acquired in 0s",
			wantTags:     "tunegrab,batch,timed_out",
			wantPriority: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, captured := newCaptureServer(t, http.StatusOK)
			svc := notifications.NewService(configFor(srv.URL, tt.onSuccess))
			if err := svc.NotifyBatchCompleted(context.Background(), tt.report); err != nil {
				t.Fatalf("NotifyBatchCompleted: %v", err)
			}
			reqs := captured()
			if !tt.wantSent {
				if len(reqs) != 0 {
					t.Fatalf("expected no request, got %+v", reqs)
				}
				return
			}
			if len(reqs) != 1 {
				t.Fatalf("expected one request, got %d", len(reqs))
			}
			got := reqs[0]
			if got.title != tt.wantTitle || got.body != tt.wantBody || got.tags != tt.wantTags || got.priority != tt.wantPriority {
				t.Fatalf("unexpected request: %+v", got)
			}
		})
	}
}

func TestNotifyErrorAndTest(t *testing.T) {
	srv, captured := newCaptureServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(srv.URL, false))
	if err := svc.NotifyError(context.Background(), errors.New("disk full "), "finalize"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	reqs := captured()
	if len(reqs) != 2 {
		t.Fatalf("expected two requests, got %d", len(reqs))
	}
	if reqs[0].body != "Error during finalize: disk full" || reqs[0].priority != "high" {
		t.Fatalf("unexpected error payload: %+v", reqs[0])
	}
	if reqs[1].priority != "low" || !strings.Contains(reqs[1].body, "test") {
		t.Fatalf("unexpected test payload: %+v", reqs[1])
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(srv.URL, false))
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected 403 error with body, got %v", err)
	}
}
