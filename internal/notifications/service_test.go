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

	"swipely/internal/config"
	"swipely/internal/notifications"
)

type captured struct {
	title, body, tags, priority string
}

func newServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), got...)
	}
}

func configFor(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.Payments = true
	cfg.Notifications.Failures = true
	cfg.Notifications.Queue = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "payment",
			event:       notifications.EventPaymentReceived,
			payload:     notifications.Payload{"amount": "299.00", "currency": "RUB", "telegram_id": int64(42), "pro_until": "2026-02-01"},
			expectTitle: "Swipely - Payment",
			expectBody:  "💳 299.00 RUB from 42 (Pro until 2026-02-01)",
			expectTags:  "swipely,payment",
		},
		{
			name:           "job failed",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{"job_id": int64(7), "stage": "writer", "error": errors.New("llm timeout")},
			expectTitle:    "Swipely - Job Failed",
			expectBody:     "❌ Job #7 failed in writer: llm timeout",
			expectTags:     "swipely,error,alert",
			expectPriority: "high",
		},
		{
			name:        "queue drained",
			event:       notifications.EventQueueCompleted,
			payload:     notifications.Payload{"processed": 3, "failed": 1, "duration": 90 * time.Second},
			expectTitle: "Swipely - Queue Drained (with errors)",
			expectBody:  "Queue drained: 3 completed, 1 failed in 1m30s",
			expectTags:  "swipely,queue,completed",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Swipely - Test",
			expectBody:     "🧪 Notification system test",
			expectTags:     "swipely,test",
			expectPriority: "low",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newServer(t)
			svc := notifications.NewService(configFor(server.URL))
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			msgs := got()
			if len(msgs) != 1 {
				t.Fatalf("expected 1 request, got %d", len(msgs))
			}
			m := msgs[0]
			if m.title != tc.expectTitle || m.body != tc.expectBody || m.tags != tc.expectTags || m.priority != tc.expectPriority {
				t.Fatalf("unexpected notification %+v", m)
			}
		})
	}
}

func TestDisabledCategoryIsSkipped(t *testing.T) {
	server, got := newServer(t)
	cfg := configFor(server.URL)
	cfg.Notifications.Queue = false
	svc := notifications.NewService(cfg)
	if err := svc.Publish(context.Background(), notifications.EventQueueStarted, notifications.Payload{"count": 2}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got()) != 0 {
		t.Fatal("expected queue notification to be suppressed")
	}
}

func TestDuplicateFailuresAreDeduplicated(t *testing.T) {
	server, got := newServer(t)
	cfg := configFor(server.URL)
	cfg.Notifications.DedupWindowSeconds = 600
	svc := notifications.NewService(cfg)
	payload := notifications.Payload{"job_id": int64(1), "error": "boom"}
	for range 3 {
		if err := svc.Publish(context.Background(), notifications.EventJobFailed, payload); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if n := len(got()); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
}

func TestPublishReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic gone", http.StatusGone)
	}))
	defer server.Close()
	svc := notifications.NewService(configFor(server.URL))
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected 410 error, got %v", err)
	}
}
