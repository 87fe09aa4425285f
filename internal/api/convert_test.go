package api

import (
	"testing"
	"time"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/logging"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/upload"
)

func TestFromStatusCopiesProgressAndArtifacts(t *testing.T) {
	started := time.Date(2024, 5, 12, 10, 30, 0, 0, time.UTC)
	status := orchestrator.Status{
		State:           orchestrator.StateRunning,
		RunID:           "run-1",
		Kind:            artifacts.RunProcess,
		StartedAt:       started,
		CurrentLanguage: "ru",
		Stage:           "upload",
		Languages:       []string{"he", "ru"},
		Produced:        2,
		Artifacts:       map[string]string{"he": "/out/he.mp4"},
		Progress:        &upload.Progress{Language: "ru", Sent: 512, Total: 1024, Percent: 50},
	}

	dto := FromStatus(status)
	if dto.State != "running" || dto.Kind != "process" || dto.RunID != "run-1" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.StartedAt != "2024-05-12T10:30:00.000Z" {
		t.Fatalf("startedAt = %q", dto.StartedAt)
	}
	if dto.FinishedAt != "" {
		t.Fatalf("zero finish time should be omitted, got %q", dto.FinishedAt)
	}
	if dto.Progress == nil || dto.Progress.BytesSent != 512 || dto.Progress.Percent != 50 {
		t.Fatalf("progress = %+v", dto.Progress)
	}
	status.Artifacts["he"] = "changed"
	if dto.Artifacts["he"] != "/out/he.mp4" {
		t.Fatal("artifacts map should be copied")
	}
}

func TestFromStatusEmptyLanguagesEncodeAsArray(t *testing.T) {
	dto := FromStatus(orchestrator.Status{State: orchestrator.StateNotStarted})
	if dto.Languages == nil {
		t.Fatal("languages should be an empty slice, not nil")
	}
}

func TestFromUploadsAddsWatchURL(t *testing.T) {
	uploads := FromUploads([]artifacts.Upload{
		{ID: 1, Language: "en", Status: "completed", RemoteID: "abc123"},
		{ID: 2, Language: "ru", Status: "failed", ErrorMessage: "quota"},
	})
	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploads))
	}
	if uploads[0].WatchURL != "https://youtu.be/abc123" {
		t.Fatalf("watch url = %q", uploads[0].WatchURL)
	}
	if uploads[1].WatchURL != "" {
		t.Fatalf("failed upload should have no watch url, got %q", uploads[1].WatchURL)
	}
}

func TestFromArtifactsHumanizesSize(t *testing.T) {
	got := FromArtifacts([]artifacts.Artifact{{ID: 3, Language: "he", SizeBytes: 2 * 1024 * 1024}})
	if got[0].Size != "2.0 MiB" {
		t.Fatalf("size = %q", got[0].Size)
	}
}

func TestFromLogEventCopiesDetails(t *testing.T) {
	evt := FromLogEvent(logging.LogEvent{
		Sequence: 7,
		Level:    "INFO",
		Message:  "upload progress",
		RunID:    "run-1",
		Language: "en",
		Details:  []logging.DetailField{{Label: "Sent", Value: "1 MiB"}},
	})
	if evt.Sequence != 7 || evt.RunID != "run-1" || evt.Language != "en" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if len(evt.Details) != 1 || evt.Details[0].Label != "Sent" {
		t.Fatalf("details = %+v", evt.Details)
	}
}
