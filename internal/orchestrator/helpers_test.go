package orchestrator_test

import (
	"context"
	"errors"
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
	"sermonmux/internal/upload"
)

var runStart = time.Date(2024, 5, 12, 10, 30, 15, 0, time.Local)

type fakeTranscoder struct {
	mu    sync.Mutex
	jobs  []transcode.Job
	fail  map[string]error
	onJob func(job transcode.Job)
}

func (f *fakeTranscoder) Execute(_ context.Context, job transcode.Job) (string, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	hook := f.onJob
	err := f.fail[job.Language]
	f.mu.Unlock()

	if hook != nil {
		hook(job)
	}
	if err != nil {
		return "", err
	}
	if writeErr := os.WriteFile(job.OutputPath, []byte("muxed"), 0o644); writeErr != nil {
		return "", writeErr
	}
	return job.OutputPath, nil
}

func (f *fakeTranscoder) Jobs() []transcode.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcode.Job(nil), f.jobs...)
}

type fakeUploader struct {
	mu       sync.Mutex
	jobs     []upload.Job
	outcomes map[string]upload.Outcome
	onUpload func(job upload.Job)
}

func (f *fakeUploader) Upload(_ context.Context, job upload.Job, token upload.CancelToken) upload.Outcome {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	hook := f.onUpload
	outcome, ok := f.outcomes[job.Language]
	f.mu.Unlock()

	if hook != nil {
		hook(job)
	}
	if token.Cancelled() {
		return upload.Outcome{Status: upload.StatusCancelled}
	}
	if ok {
		return outcome
	}
	return upload.Outcome{Status: upload.StatusCompleted, RemoteID: "vid-" + job.Language, BytesSent: 5, Total: 5}
}

func (f *fakeUploader) Jobs() []upload.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upload.Job(nil), f.jobs...)
}

func (f *fakeUploader) Languages() []string {
	var langs []string
	for _, job := range f.Jobs() {
		langs = append(langs, job.Language)
	}
	return langs
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) Has(event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type harness struct {
	cfg        *config.Config
	store      *artifacts.Store
	transcoder *fakeTranscoder
	uploader   *fakeUploader
	notifier   *recordingNotifier
	manager    *orchestrator.Manager
	media      testsupport.Media
	clock      *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		transcoder: &fakeTranscoder{},
		uploader:   &fakeUploader{},
		notifier:   &recordingNotifier{},
		media:      testsupport.WriteMedia(t, t.TempDir(), "ru", "en"),
		clock:      &clock{now: runStart},
	}
	h.manager = h.newManager()
	return h
}

func (h *harness) newManager() *orchestrator.Manager {
	return orchestrator.NewManager(h.cfg, h.store, h.transcoder, logging.NewNop(),
		orchestrator.WithNotifier(h.notifier),
		orchestrator.WithClock(h.clock.Now),
		orchestrator.WithUploaderFactory(func(context.Context) (orchestrator.Uploader, error) {
			return h.uploader, nil
		}),
	)
}

// request supplies the original audio plus the named translations.
func (h *harness) request(translations ...string) orchestrator.Request {
	audio := map[string]string{"he": h.media.Original}
	for _, lang := range translations {
		audio[lang] = h.media.Audio[lang]
	}
	return orchestrator.Request{
		VideoPath: h.media.Video,
		Audio:     audio,
		Date:      "2024-05-12",
	}
}

func (h *harness) expectedPath(lang string) string {
	return artifacts.PathFor(h.cfg.Paths.OutputDir, h.clock.Now(), h.cfg.MeetingType(), lang)
}

func waitForRun(t *testing.T, m *orchestrator.Manager) orchestrator.Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := m.Wait(ctx)
	if err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
	return status
}

func mustStart(t *testing.T, m *orchestrator.Manager, req orchestrator.Request) orchestrator.Status {
	t.Helper()
	if _, err := m.Start(context.Background(), req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return waitForRun(t, m)
}

func mustUploadExisting(t *testing.T, m *orchestrator.Manager, req orchestrator.Request) orchestrator.Status {
	t.Helper()
	if _, err := m.UploadExisting(context.Background(), req); err != nil {
		t.Fatalf("UploadExisting: %v", err)
	}
	return waitForRun(t, m)
}

var errBoom = errors.New("boom")
