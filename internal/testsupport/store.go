package testsupport

import (
	"context"
	"testing"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/config"
)

// MustOpenStore opens the artifact registry for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *artifacts.Store {
	t.Helper()

	store, err := artifacts.Open(cfg.StateDBPath())
	if err != nil {
		t.Fatalf("artifacts.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun inserts a run row for tests.
func BeginRun(t testing.TB, store *artifacts.Store, id string) {
	t.Helper()

	err := store.BeginRun(context.Background(), artifacts.Run{
		ID:          id,
		Kind:        artifacts.RunProcess,
		State:       "running",
		Stamp:       "2024-05-12-10-30",
		MeetingType: "Sermon",
	})
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
}
