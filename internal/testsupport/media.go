package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Media is a set of placeholder input files for a run.
type Media struct {
	Video    string
	Original string
	Audio    map[string]string
}

// WriteMedia creates a video file, the original audio and one audio file per
// translation code under dir.
func WriteMedia(t testing.TB, dir string, translations ...string) Media {
	t.Helper()
	media := Media{
		Video:    filepath.Join(dir, "video.mp4"),
		Original: filepath.Join(dir, "original.wav"),
		Audio:    make(map[string]string, len(translations)),
	}
	WriteFile(t, media.Video, 2048)
	WriteFile(t, media.Original, 512)
	for _, code := range translations {
		path := filepath.Join(dir, code+".wav")
		WriteFile(t, path, 512)
		media.Audio[code] = path
	}
	return media
}

// WriteFile writes size placeholder bytes to path, creating parent
// directories. Sizes below one still produce a one-byte file so the file
// never reads as empty media.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'m'}, int(max(size, 1))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
