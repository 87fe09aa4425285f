package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sermonmux/internal/config"
	"sermonmux/internal/logging"
)

func writeConfig(t *testing.T, path, location string) {
	t.Helper()
	dir := filepath.Dir(path)
	content := fmt.Sprintf(`[paths]
output_dir = %q
state_dir = %q
api_token = "tok-%s"

[meeting]
location = %q
`, filepath.Join(dir, "out"), filepath.Join(dir, "state"), location, location)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestConfigWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "Hall A")

	applied := make(chan *config.Config, 4)
	w, err := newConfigWatcher(path, func(cfg *config.Config) { applied <- cfg }, logging.NewNop())
	if err != nil {
		t.Fatalf("newConfigWatcher: %v", err)
	}
	defer w.close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.run(ctx)

	writeConfig(t, path, "Hall B")

	select {
	case cfg := <-applied:
		if cfg.Meeting.Location != "Hall B" {
			t.Fatalf("location = %q", cfg.Meeting.Location)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not applied")
	}
}

func TestConfigWatcherKeepsConfigOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "Hall A")

	called := false
	w, err := newConfigWatcher(path, func(*config.Config) { called = true }, logging.NewNop())
	if err != nil {
		t.Fatalf("newConfigWatcher: %v", err)
	}
	defer w.close()

	if err := os.WriteFile(path, []byte("[mixing]\nducked_level = 9.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.reload()
	if called {
		t.Fatal("invalid configuration must not be applied")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	w.reload()
	if called {
		t.Fatal("missing configuration must not be applied")
	}
}

func TestDaemonReloadUpdatesTokenAndManager(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "Hall C")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	f.daemon.reload(cfg)

	if f.daemon.Config().Meeting.Location != "Hall C" {
		t.Fatalf("daemon config not swapped")
	}
	if f.manager.Config().Meeting.Location != "Hall C" {
		t.Fatalf("manager config not swapped")
	}
	if w := f.do(t, "GET", "/api/status", nil); w.Code != 401 {
		t.Fatalf("expected reloaded token to be enforced, got %d", w.Code)
	}
}
