package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"swipely/internal/config"
)

const userAgent = "Swipely/1.0"

// Event identifies a notification type.
type Event string

const (
	EventPaymentReceived Event = "payment_received"
	EventJobFailed       Event = "job_failed"
	EventQueueStarted    Event = "queue_started"
	EventQueueCompleted  Event = "queue_completed"
	EventTest            Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy-backed service, or a no-op without a topic.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		toggles: map[Event]bool{
			EventPaymentReceived: cfg.Notifications.Payments,
			EventJobFailed:       cfg.Notifications.Failures,
			EventQueueStarted:    cfg.Notifications.Queue,
			EventQueueCompleted:  cfg.Notifications.Queue,
			EventTest:            true,
		},
		dedupWindow: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:    make(map[string]time.Time),
		now:         time.Now,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  map[Event]bool

	dedupWindow time.Duration
	mu          sync.Mutex
	lastSent    map[string]time.Time
	now         func() time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.toggles[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	if n.duplicate(event, msg) {
		return nil
	}
	return n.send(ctx, msg)
}

// duplicate reports whether the same message went out within the dedup window
// and records it otherwise.
func (n *ntfyService) duplicate(event Event, msg message) bool {
	if n.dedupWindow <= 0 || event == EventTest {
		return false
	}
	key := string(event) + "\x00" + msg.body
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	n.lastSent[key] = now
	for k, t := range n.lastSent {
		if now.Sub(t) >= n.dedupWindow {
			delete(n.lastSent, k)
		}
	}
	return false
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventPaymentReceived:
		return message{
			title: "Swipely - Payment",
			body: fmt.Sprintf("💳 %s %s from %v (Pro until %s)",
				payloadString(payload, "amount"), payloadString(payload, "currency"),
				payload["telegram_id"], payloadString(payload, "pro_until")),
			tags: []string{"swipely", "payment"},
		}, true
	case EventJobFailed:
		var b strings.Builder
		b.WriteString("❌ Job")
		if id, ok := payload["job_id"]; ok {
			fmt.Fprintf(&b, " #%v", id)
		}
		if stage := payloadString(payload, "stage"); stage != "" {
			fmt.Fprintf(&b, " failed in %s", stage)
		} else {
			b.WriteString(" failed")
		}
		b.WriteString(": ")
		if err, ok := payload["error"].(error); ok && err != nil {
			b.WriteString(strings.TrimSpace(err.Error()))
		} else if text := payloadString(payload, "error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{title: "Swipely - Job Failed", body: b.String(), tags: []string{"swipely", "error", "alert"}, priority: "high"}, true
	case EventQueueStarted:
		return message{
			title: "Swipely - Queue Started",
			body:  fmt.Sprintf("Generating %v carousel(s)", payload["count"]),
			tags:  []string{"swipely", "queue", "started"},
		}, true
	case EventQueueCompleted:
		duration, _ := payload["duration"].(time.Duration)
		duration = max(duration.Round(time.Second), 0)
		failed, _ := payload["failed"].(int)
		title := "Swipely - Queue Drained"
		if failed > 0 {
			title = "Swipely - Queue Drained (with errors)"
		}
		return message{
			title: title,
			body:  fmt.Sprintf("Queue drained: %v completed, %d failed in %s", payload["processed"], failed, duration),
			tags:  []string{"swipely", "queue", "completed"},
		}, true
	case EventTest:
		return message{title: "Swipely - Test", body: "🧪 Notification system test", tags: []string{"swipely", "test"}, priority: "low"}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
