package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sermonmux/internal/config"
)

const userAgent = "sermonmux/0.1.0"

// Event identifies a run occurrence worth notifying about.
type Event string

const (
	EventRunStarted       Event = "run_started"
	EventRunCompleted     Event = "run_completed"
	EventRunCancelled     Event = "run_cancelled"
	EventRunFaulted       Event = "run_faulted"
	EventTranscodeFailed  Event = "transcode_failed"
	EventUploadCompleted  Event = "upload_completed"
	EventUploadFailed     Event = "upload_failed"
	EventNothingUploaded  Event = "nothing_uploaded"
	EventTestNotification Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service defines the notification surface used by the orchestrator.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// render maps an event onto its ntfy message. Events that are not worth a
// push (run start, per-language success) return ok=false.
func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		kind := payloadString(payload, "kind")
		produced := payloadInt(payload, "produced")
		uploaded := payloadInt(payload, "uploaded")
		failed := payloadInt(payload, "failed")
		body := fmt.Sprintf("✅ %s finished: %d produced, %d uploaded", runLabel(kind), produced, uploaded)
		title := "sermonmux - Run Complete"
		if failed > 0 {
			title = "sermonmux - Run Complete (with errors)"
			body = fmt.Sprintf("%s, %d failed", body, failed)
		}
		if elapsed, ok := payload["elapsed"].(time.Duration); ok && elapsed > 0 {
			body = fmt.Sprintf("%s in %s", body, elapsed.Round(time.Second))
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"sermonmux", "run", "completed"},
		}, true
	case EventRunCancelled:
		body := "⏹️ Run cancelled"
		if lang := payloadString(payload, "language"); lang != "" {
			body = fmt.Sprintf("%s during %s", body, lang)
		}
		return message{
			title: "sermonmux - Cancelled",
			body:  body,
			tags:  []string{"sermonmux", "run", "cancelled"},
		}, true
	case EventRunFaulted:
		return message{
			title:    "sermonmux - Run Failed",
			body:     fmt.Sprintf("❌ Run failed: %s", fallback(payloadString(payload, "error"), "unknown error")),
			tags:     []string{"sermonmux", "error", "alert"},
			priority: "high",
		}, true
	case EventTranscodeFailed:
		return message{
			title:    "sermonmux - Transcode Failed",
			body:     fmt.Sprintf("❌ Transcode failed for %s: %s", fallback(payloadString(payload, "language"), "unknown"), fallback(payloadString(payload, "error"), "unknown error")),
			tags:     []string{"sermonmux", "transcode", "error"},
			priority: "high",
		}, true
	case EventUploadCompleted:
		body := fmt.Sprintf("📺 Uploaded %s: %s", fallback(payloadString(payload, "language"), "video"), payloadString(payload, "title"))
		if id := payloadString(payload, "remoteID"); id != "" {
			body = fmt.Sprintf("%s\nhttps://youtu.be/%s", body, id)
		}
		return message{
			title: "sermonmux - Uploaded",
			body:  body,
			tags:  []string{"sermonmux", "upload", "completed"},
		}, true
	case EventUploadFailed:
		return message{
			title:    "sermonmux - Upload Failed",
			body:     fmt.Sprintf("❌ Upload failed for %s: %s", fallback(payloadString(payload, "language"), "unknown"), fallback(payloadString(payload, "error"), "unknown error")),
			tags:     []string{"sermonmux", "upload", "error"},
			priority: "high",
		}, true
	case EventNothingUploaded:
		return message{
			title: "sermonmux - Nothing Uploaded",
			body:  "No existing files uploaded",
			tags:  []string{"sermonmux", "upload", "skipped"},
		}, true
	case EventTestNotification:
		return message{
			title:    "sermonmux - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"sermonmux", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func runLabel(kind string) string {
	if kind == "upload_existing" {
		return "Upload of existing files"
	}
	return "Processing run"
}

func payloadString(p Payload, key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(p Payload, key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
