package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/config"
	"sermonmux/internal/logging"
	"sermonmux/internal/notifications"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/testsupport"
	"sermonmux/internal/transcode"
)

type blockingTranscoder struct {
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (b *blockingTranscoder) Execute(_ context.Context, job transcode.Job) (string, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first && b.entered != nil {
		close(b.entered)
		<-b.release
	}
	if err := os.WriteFile(job.OutputPath, []byte("muxed"), 0o644); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}

type quietNotifier struct{}

func (quietNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}

type fixture struct {
	cfg        *config.Config
	store      *artifacts.Store
	hub        *logging.StreamHub
	transcoder *blockingTranscoder
	manager    *orchestrator.Manager
	daemon     *Daemon
	media      testsupport.Media
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	f := &fixture{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		hub:        logging.NewStreamHub(64),
		transcoder: &blockingTranscoder{},
		media:      testsupport.WriteMedia(t, t.TempDir(), "ru", "en"),
	}
	f.manager = orchestrator.NewManager(cfg, f.store, f.transcoder, logging.NewNop(),
		orchestrator.WithNotifier(quietNotifier{}),
	)
	d, err := New(cfg, f.manager, f.store, logging.NewNop(), WithLogStream(f.hub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.daemon = d
	return f
}

// block makes the first transcode wait until the returned release is called.
func (f *fixture) block() (entered <-chan struct{}, release func()) {
	in := make(chan struct{})
	out := make(chan struct{})
	f.transcoder.entered = in
	f.transcoder.release = out
	var once sync.Once
	return in, func() { once.Do(func() { close(out) }) }
}

func (f *fixture) manifestBody(t *testing.T, translations ...string) []byte {
	t.Helper()
	audio := map[string]string{"he": f.media.Original}
	for _, lang := range translations {
		audio[lang] = f.media.Audio[lang]
	}
	body, err := json.Marshal(map[string]any{
		"video":    f.media.Video,
		"audio":    audio,
		"segments": "30-90",
		"date":     "2024-05-12",
	})
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	return body
}

func (f *fixture) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	f.daemon.Handler().ServeHTTP(w, req)
	return w
}

func (f *fixture) wait(t *testing.T) orchestrator.Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := f.manager.Wait(ctx)
	if err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
	return status
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); want != http.StatusUnauthorized && ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}
