package orchestrator_test

import (
	"context"
	"testing"

	"sermonmux/internal/transcode"
)

func TestReconfigureAppliesWhenIdle(t *testing.T) {
	h := newHarness(t)
	next := *h.cfg
	next.Paths.OutputDir = t.TempDir()

	if !h.manager.Reconfigure(&next) {
		t.Fatal("expected idle reconfigure to apply immediately")
	}
	if h.manager.Config().Paths.OutputDir != next.Paths.OutputDir {
		t.Fatalf("config not applied: %q", h.manager.Config().Paths.OutputDir)
	}

	mustStart(t, h.manager, h.request())
	jobs := h.transcoder.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	h.cfg = &next
	if jobs[0].OutputPath != h.expectedPath("he") {
		t.Fatalf("output path = %q, want %q", jobs[0].OutputPath, h.expectedPath("he"))
	}
}

func TestReconfigureDeferredDuringRun(t *testing.T) {
	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.transcoder.onJob = func(transcode.Job) {
		close(entered)
		<-release
	}
	if _, err := h.manager.Start(context.Background(), h.request()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered

	next := *h.cfg
	next.Meeting.Location = "Haifa"
	if h.manager.Reconfigure(&next) {
		t.Fatal("reconfigure during a run must be deferred")
	}
	if h.manager.Config().Meeting.Location == "Haifa" {
		t.Fatal("config swapped while running")
	}
	close(release)
	waitForRun(t, h.manager)

	if h.manager.Config().Meeting.Location != "Haifa" {
		t.Fatalf("deferred config not applied, location = %q", h.manager.Config().Meeting.Location)
	}
}
