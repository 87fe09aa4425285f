package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sermonmux/internal/api"
	"sermonmux/internal/logging"
	"sermonmux/internal/orchestrator"
)

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/status", nil)
	expectCode(t, w, http.StatusOK)
	status := decode[api.DaemonStatus](t, w)
	if status.Run.State != string(orchestrator.StateNotStarted) {
		t.Fatalf("run state = %q", status.Run.State)
	}
	if strings.Join(status.Languages, ",") != "he,ru,en" {
		t.Fatalf("languages = %v", status.Languages)
	}
	if status.StateDBPath != f.cfg.StateDBPath() || status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected paths: %+v", status)
	}
	if len(status.Dependencies) != 1 || status.Dependencies[0].Name != "FFmpeg" {
		t.Fatalf("dependencies = %+v", status.Dependencies)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestStartRunAcceptsManifestAndRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	entered, release := f.block()
	defer release()

	w := f.do(t, http.MethodPost, "/api/runs", f.manifestBody(t, "ru"))
	expectCode(t, w, http.StatusAccepted)
	started := decode[api.RunStartResponse](t, w)
	if started.RunID == "" || started.Kind != "process" {
		t.Fatalf("unexpected start response: %+v", started)
	}
	<-entered

	w = f.do(t, http.MethodPost, "/api/runs", f.manifestBody(t))
	expectCode(t, w, http.StatusConflict)

	w = f.do(t, http.MethodGet, "/api/status", nil)
	status := decode[api.DaemonStatus](t, w)
	if status.Run.State != "running" || status.Run.RunID != started.RunID || status.Run.Stage != "transcode" {
		t.Fatalf("unexpected running status: %+v", status.Run)
	}

	release()
	final := f.wait(t)
	if final.State != orchestrator.StateCompleted || final.Produced != 2 {
		t.Fatalf("unexpected final status: %+v", final)
	}
}

func TestStartRunRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		target string
		body   string
	}{
		{name: "empty body", target: "/api/runs", body: ""},
		{name: "unknown field", target: "/api/runs", body: `{"video":"a.mp4","colour":"red"}`},
		{name: "missing original audio", target: "/api/runs", body: `{"video":"/tmp/a.mp4"}`},
		{name: "bad meeting type", target: "/api/runs", body: `{"video":"/tmp/a.mp4","audio":{"he":"/tmp/he.wav"},"meeting_type":"Concert"}`},
		{name: "unknown mode", target: "/api/runs?mode=replay", body: `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tc.target, []byte(tc.body))
			expectCode(t, w, http.StatusBadRequest)
			if resp := decode[api.ErrorResponse](t, w); resp.Error == "" {
				t.Fatal("expected an error message")
			}
		})
	}
	if f.manager.Running() {
		t.Fatal("no run should have started")
	}
}

func TestUploadExistingModeWithoutBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/runs?mode=upload_existing", nil)
	// No uploader factory is configured, so the run is rejected up front.
	expectCode(t, w, http.StatusBadRequest)
	resp := decode[api.ErrorResponse](t, w)
	if resp.ErrorClass != "configuration" {
		t.Fatalf("error class = %q", resp.ErrorClass)
	}
}

func TestCancelEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/runs/cancel", nil)
	expectCode(t, w, http.StatusOK)
	if resp := decode[api.CancelResponse](t, w); resp.Cancelled {
		t.Fatal("cancel without a run should report false")
	}

	entered, release := f.block()
	defer release()
	expectCode(t, f.do(t, http.MethodPost, "/api/runs", f.manifestBody(t, "ru")), http.StatusAccepted)
	<-entered

	w = f.do(t, http.MethodPost, "/api/runs/cancel", nil)
	expectCode(t, w, http.StatusAccepted)
	resp := decode[api.CancelResponse](t, w)
	if !resp.Cancelled || !resp.Run.CancelRequested {
		t.Fatalf("unexpected cancel response: %+v", resp)
	}
	release()
	if status := f.wait(t); status.State != orchestrator.StateCancelled || status.Produced != 1 {
		t.Fatalf("expected cancelled after one language, got %+v", status)
	}
}

func TestArtifactsEndpoint(t *testing.T) {
	f := newFixture(t)
	expectCode(t, f.do(t, http.MethodPost, "/api/runs", f.manifestBody(t)), http.StatusAccepted)
	f.wait(t)

	w := f.do(t, http.MethodGet, "/api/artifacts?limit=10", nil)
	expectCode(t, w, http.StatusOK)
	resp := decode[api.ArtifactsResponse](t, w)
	if len(resp.Runs) != 1 || resp.Runs[0].State != "completed" {
		t.Fatalf("runs = %+v", resp.Runs)
	}
	if len(resp.Artifacts) != 1 || resp.Artifacts[0].Language != "he" || resp.Artifacts[0].JobKind != "single_track" {
		t.Fatalf("artifacts = %+v", resp.Artifacts)
	}
	if len(resp.Uploads) != 0 {
		t.Fatalf("uploads = %+v", resp.Uploads)
	}
}

func TestArtifactsEndpointWithoutStore(t *testing.T) {
	f := newFixture(t)
	d, err := New(f.cfg, f.manager, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/artifacts", nil))
	expectCode(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"artifacts":[]`) {
		t.Fatalf("expected empty arrays, got %s", w.Body.String())
	}
}

func TestLogsEndpointFiltersAndTails(t *testing.T) {
	f := newFixture(t)
	f.hub.Publish(logging.LogEvent{Level: "INFO", Message: "run started", Component: "orchestrator", RunID: "r1"})
	f.hub.Publish(logging.LogEvent{Level: "INFO", Message: "chunk acknowledged", Component: "upload", RunID: "r1", Language: "en"})
	f.hub.Publish(logging.LogEvent{Level: "WARN", Message: "other run", Component: "upload", RunID: "r2"})

	w := f.do(t, http.MethodGet, "/api/logs?component=upload&run_id=r1", nil)
	expectCode(t, w, http.StatusOK)
	resp := decode[api.LogStreamResponse](t, w)
	if len(resp.Events) != 1 || resp.Events[0].Message != "chunk acknowledged" || resp.Events[0].Language != "en" {
		t.Fatalf("filtered events = %+v", resp.Events)
	}
	if resp.Next != 3 {
		t.Fatalf("next = %d, want 3", resp.Next)
	}

	w = f.do(t, http.MethodGet, "/api/logs?tail=1&limit=1", nil)
	resp = decode[api.LogStreamResponse](t, w)
	if len(resp.Events) != 1 || resp.Events[0].Message != "other run" {
		t.Fatalf("tail events = %+v", resp.Events)
	}

	w = f.do(t, http.MethodGet, "/api/logs?since=3", nil)
	resp = decode[api.LogStreamResponse](t, w)
	if len(resp.Events) != 0 {
		t.Fatalf("expected no events after cursor, got %+v", resp.Events)
	}
}

func TestLogsEndpointReportsEvictedEvents(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 70; i++ {
		f.hub.Publish(logging.LogEvent{Level: "INFO", Message: "tick", Component: "upload"})
	}

	w := f.do(t, http.MethodGet, "/api/logs?limit=10", nil)
	expectCode(t, w, http.StatusOK)
	resp := decode[api.LogStreamResponse](t, w)
	if resp.Dropped != 6 {
		t.Fatalf("dropped = %d, want 6", resp.Dropped)
	}
	if len(resp.Events) != 10 || resp.Events[0].Sequence != 7 {
		t.Fatalf("events = %d starting at %d", len(resp.Events), resp.Events[0].Sequence)
	}

	w = f.do(t, http.MethodGet, "/api/logs?since=60", nil)
	resp = decode[api.LogStreamResponse](t, w)
	if resp.Dropped != 0 || len(resp.Events) != 10 {
		t.Fatalf("caught-up poll = %d events, %d dropped", len(resp.Events), resp.Dropped)
	}
}

func TestLogsWebsocketStreamsEvents(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(f.daemon.Handler())
	defer server.Close()

	f.hub.Publish(logging.LogEvent{Level: "INFO", Message: "first", Component: "orchestrator"})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/logs/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var evt api.LogEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if evt.Message != "first" || evt.Sequence != 1 {
		t.Fatalf("unexpected first event: %+v", evt)
	}

	f.hub.Publish(logging.LogEvent{Level: "INFO", Message: "second", Component: "upload"})
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if evt.Message != "second" || evt.Sequence != 2 {
		t.Fatalf("unexpected second event: %+v", evt)
	}
}

func TestAuthRequiresBearerToken(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paths.APIToken = "secret"
	d, err := New(f.cfg, f.manager, f.store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "missing", target: "/api/status", want: http.StatusUnauthorized},
		{name: "wrong scheme", target: "/api/status", header: "Basic secret", want: http.StatusUnauthorized},
		{name: "wrong token", target: "/api/status", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", target: "/api/status", header: "Bearer secret", want: http.StatusOK},
		{name: "query token", target: "/api/status?access_token=secret", want: http.StatusOK},
		{name: "health is public", target: "/healthz", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			d.Handler().ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestDaemonStartServesAndStops(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}

	resp, err := http.Get("http://" + f.daemon.Address() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}

	f.daemon.Stop()
	if f.daemon.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
	if _, err := http.Get("http://" + f.daemon.Address() + "/healthz"); err == nil {
		t.Fatal("expected listener to be closed")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/notifications/test", nil)
	expectCode(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "ntfy topic not configured") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
