package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sermonmux/internal/orchestrator"
	"sermonmux/internal/services"
	"sermonmux/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "he (Hebrew)")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestSegmentsCheck(t *testing.T) {
	out, _, err := runCLI(t, []string{"segments", "check", "60-300, 450-600"}, "")
	if err != nil {
		t.Fatalf("segments check: %v", err)
	}
	requireContains(t, out, "Translation windows: 60-300,450-600 (390s total)")

	out, _, err = runCLI(t, []string{"segments", "check", "60-300,abc,500-400"}, "")
	if err == nil {
		t.Fatal("expected rejected segments to fail the command")
	}
	requireContains(t, out, "Skipped")
	requireContains(t, err.Error(), "2 segment(s) rejected: abc, 500-400")

	out, _, err = runCLI(t, []string{"segments", "check", " "}, "")
	if err != nil {
		t.Fatalf("blank segments: %v", err)
	}
	requireContains(t, out, "No valid segments")
}

func TestProcessWithFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"process",
		"--video", env.media.Video,
		"--audio", "he=" + env.media.Original,
		"--audio", "ru=" + env.media.Audio["ru"],
		"--segments", "30-90",
		"--date", "2024-05-12",
	}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "2 produced, 0 uploaded, 0 failed")
	requireContains(t, out, "Hebrew")

	files := outputFiles(t, env.cfg.Paths.OutputDir)
	if len(files) != 2 {
		t.Fatalf("expected 2 output files, got %v", files)
	}
	for _, file := range files {
		if !strings.HasSuffix(file, "--he.mp4") && !strings.HasSuffix(file, "--ru.mp4") {
			t.Fatalf("unexpected output name %s", file)
		}
	}

	args, err := os.ReadFile(testsupport.ArgsLog(env.cfg.FFmpeg.Binary))
	if err != nil {
		t.Fatalf("read args log: %v", err)
	}
	requireContains(t, string(args), "between(t,30.0,90.0)")
}

func TestProcessWithManifest(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Dir(env.media.Video)
	manifestPath := filepath.Join(dir, "run.yaml")
	doc := "video: " + filepath.Base(env.media.Video) + "\n" +
		"audio:\n" +
		"  he: " + filepath.Base(env.media.Original) + "\n" +
		"  en: " + filepath.Base(env.media.Audio["en"]) + "\n" +
		"segments: \"10-20\"\n" +
		"meeting_type: Prayer meeting\n"
	if err := os.WriteFile(manifestPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out, _, err := runCLI(t, []string{"process", "--manifest", manifestPath}, env.configPath)
	if err != nil {
		t.Fatalf("process --manifest: %v", err)
	}
	requireContains(t, out, "2 produced")
	files := outputFiles(t, env.cfg.Paths.OutputDir)
	if len(files) != 2 || !strings.Contains(files[0], "prayer_meeting") {
		t.Fatalf("unexpected outputs %v", files)
	}
}

func TestProcessRejectsMissingOriginalAudio(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{
		"process",
		"--video", env.media.Video,
		"--audio", "ru=" + env.media.Audio["ru"],
	}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if files := outputFiles(t, env.cfg.Paths.OutputDir); len(files) != 0 {
		t.Fatalf("no files expected, got %v", files)
	}
}

func TestProcessRejectsMalformedAudioFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"process", "--video", env.media.Video, "--audio", "he"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "expected lang=path") {
		t.Fatalf("expected malformed audio error, got %v", err)
	}
}

func TestProcessEngineFailureExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFailingFFmpeg())

	out, _, err := runCLI(t, []string{
		"process",
		"--video", env.media.Video,
		"--audio", "he=" + env.media.Original,
	}, env.configPath)
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.code != exitFailures {
		t.Fatalf("expected exit code %d, got %v", exitFailures, err)
	}
	requireContains(t, out, "0 produced, 0 uploaded, 1 failed")
}

func TestProcessMissingEngineFailsPreflight(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMissingFFmpeg())

	_, stderr, err := runCLI(t, []string{
		"process",
		"--video", env.media.Video,
		"--audio", "he=" + env.media.Original,
	}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected preflight configuration error, got %v", err)
	}
	requireContains(t, stderr, "FAIL")
}

func TestUploadExistingRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)

	_, stderr, err := runCLI(t, []string{"upload-existing"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing credentials to fail preflight")
	}
	requireContains(t, stderr, "YouTube credentials")
}

func TestArtifactsList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"artifacts", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("artifacts list: %v", err)
	}
	requireContains(t, out, "No artifacts recorded")

	if _, _, err := runCLI(t, []string{
		"process", "--video", env.media.Video, "--audio", "he=" + env.media.Original,
	}, env.configPath); err != nil {
		t.Fatalf("process: %v", err)
	}

	out, _, err = runCLI(t, []string{"artifacts", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("artifacts list: %v", err)
	}
	requireContains(t, out, "single_track")
	requireContains(t, out, "Hebrew")

	out, _, err = runCLI(t, []string{"artifacts", "list", "--uploads"}, env.configPath)
	if err != nil {
		t.Fatalf("artifacts list --uploads: %v", err)
	}
	requireContains(t, out, "No uploads recorded")
}

func TestDoctorWithoutUploadChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor", "--upload=false"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "All checks passed")

	out, _, err = runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected credential check to fail without files")
	}
	requireContains(t, out, "[FAIL]")
}

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		status orchestrator.Status
		want   int
	}{
		{orchestrator.Status{State: orchestrator.StateCompleted}, exitOK},
		{orchestrator.Status{State: orchestrator.StateCompleted, Failed: 1}, exitFailures},
		{orchestrator.Status{State: orchestrator.StateCancelled}, exitCancelled},
		{orchestrator.Status{State: orchestrator.StateFaulted}, exitFaulted},
	}
	for _, tc := range cases {
		if got := exitCodeFor(tc.status); got != tc.want {
			t.Fatalf("exitCodeFor(%+v) = %d, want %d", tc.status, got, tc.want)
		}
	}
}

func TestParseAudioFlags(t *testing.T) {
	audio, err := parseAudioFlags([]string{"HE=/a/he.wav", " ru = /a/ru,1.wav "})
	if err != nil {
		t.Fatalf("parseAudioFlags: %v", err)
	}
	if audio["he"] != "/a/he.wav" || audio["ru"] != "/a/ru,1.wav" {
		t.Fatalf("unexpected audio map: %v", audio)
	}
	for _, bad := range []string{"he", "=x", "he="} {
		if _, err := parseAudioFlags([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
