package artifacts_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.BeginRun(t, store, "run-1")

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil || run.State != "running" || run.FinishedAt != nil {
		t.Fatalf("unexpected run: %#v", run)
	}

	if err := store.FinishRun(ctx, "run-1", "faulted", "engine not found"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.State != "faulted" || run.ErrorMessage != "engine not found" || run.FinishedAt == nil {
		t.Fatalf("unexpected finished run: %#v", run)
	}

	if err := store.FinishRun(ctx, "missing", "completed", ""); err == nil {
		t.Fatal("expected error finishing unknown run")
	}
	if missing, err := store.GetRun(ctx, "missing"); err != nil || missing != nil {
		t.Fatalf("expected nil run, got %#v, %v", missing, err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}
}

func TestBeginRunRequiresID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := store.BeginRun(context.Background(), artifacts.Run{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestLatestArtifactPerLanguage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1")
	testsupport.BeginRun(t, store, "run-2")

	if a, err := store.LatestArtifact(ctx, "he"); err != nil || a != nil {
		t.Fatalf("expected no artifact, got %#v, %v", a, err)
	}

	records := []artifacts.Artifact{
		{RunID: "run-1", Language: "he", JobKind: "single_track", Path: "/out/old-he.mp4", SizeBytes: 10},
		{RunID: "run-1", Language: "ru", JobKind: "mixed_track", Path: "/out/old-ru.mp4", SizeBytes: 20},
		{RunID: "run-2", Language: "he", JobKind: "single_track", Path: "/out/new-he.mp4", SizeBytes: 30},
	}
	for _, rec := range records {
		if _, err := store.RecordArtifact(ctx, rec); err != nil {
			t.Fatalf("RecordArtifact: %v", err)
		}
	}

	he, err := store.LatestArtifact(ctx, "he")
	if err != nil {
		t.Fatalf("LatestArtifact: %v", err)
	}
	if he == nil || he.Path != "/out/new-he.mp4" || he.RunID != "run-2" {
		t.Fatalf("unexpected latest he artifact: %#v", he)
	}
	ru, err := store.LatestArtifact(ctx, "ru")
	if err != nil || ru == nil || ru.JobKind != "mixed_track" {
		t.Fatalf("unexpected ru artifact: %#v, %v", ru, err)
	}

	all, err := store.ListArtifacts(ctx, 10)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(all) != 3 || all[0].Path != "/out/new-he.mp4" {
		t.Fatalf("unexpected listing order: %#v", all)
	}
}

func TestRecordUploadAndList(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1")
	testsupport.BeginRun(t, store, "run-2")

	uploads := []artifacts.Upload{
		{RunID: "run-1", Language: "he", Path: "/out/he.mp4", Status: "completed", RemoteID: "abc123", BytesSent: 1024},
		{RunID: "run-1", Language: "ru", Path: "/out/ru.mp4", Status: "failed", ErrorMessage: "quota exceeded"},
		{RunID: "run-2", Language: "he", Path: "/out/he.mp4", Status: "cancelled"},
	}
	for _, u := range uploads {
		if err := store.RecordUpload(ctx, u); err != nil {
			t.Fatalf("RecordUpload: %v", err)
		}
	}

	runOne, err := store.ListUploads(ctx, "run-1", 0)
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(runOne) != 2 {
		t.Fatalf("expected 2 uploads for run-1, got %d", len(runOne))
	}
	if runOne[0].Language != "ru" || runOne[0].ErrorMessage != "quota exceeded" {
		t.Fatalf("unexpected newest upload: %#v", runOne[0])
	}
	if runOne[1].RemoteID != "abc123" || runOne[1].BytesSent != 1024 {
		t.Fatalf("unexpected completed upload: %#v", runOne[1])
	}

	all, err := store.ListUploads(ctx, "", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 uploads, got %d (%v)", len(all), err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := artifacts.Open(cfg.StateDBPath())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.BeginRun(t, store, "run-1")
	if _, err := store.RecordArtifact(context.Background(), artifacts.Artifact{RunID: "run-1", Language: "he", JobKind: "single_track", Path: "/out/he.mp4"}); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	a, err := reopened.LatestArtifact(context.Background(), "he")
	if err != nil || a == nil || a.Path != "/out/he.mp4" {
		t.Fatalf("expected artifact after reopen, got %#v, %v", a, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := artifacts.Open(cfg.StateDBPath())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", cfg.StateDBPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	db.Close()

	if _, err := artifacts.Open(cfg.StateDBPath()); !errors.Is(err, artifacts.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
