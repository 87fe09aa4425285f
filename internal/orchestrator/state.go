package orchestrator

import (
	"context"
	"errors"
	"sync"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// State is the run lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFaulted    State = "faulted"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFaulted
}

// CancelToken is a one-shot cancellation signal. Cancel may be called any
// number of times from any goroutine.
type CancelToken struct {
	once   sync.Once
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancelToken returns an unset token whose Context carries parent's
// values but not its cancellation.
func NewCancelToken(parent context.Context) *CancelToken {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &CancelToken{done: make(chan struct{}), ctx: ctx, cancel: cancel}
}

// Cancel sets the token.
func (t *CancelToken) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		close(t.done)
		t.cancel()
	})
}

// Cancelled reports whether Cancel was called.
func (t *CancelToken) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed once the token is set.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Context is cancelled together with the token.
func (t *CancelToken) Context() context.Context {
	return t.ctx
}

// release frees the context resources once a run has ended.
func (t *CancelToken) release() {
	if t != nil {
		t.cancel()
	}
}

// RunState holds the active token and the per-language artifact paths of the
// latest processing run. Only the worker writes; readers may see stale data.
type RunState struct {
	mu        sync.RWMutex
	token     *CancelToken
	artifacts map[string]string
}

// resetForProcessing installs a fresh token and forgets previous artifacts.
func (s *RunState) resetForProcessing(token *CancelToken) {
	s.mu.Lock()
	s.token = token
	s.artifacts = make(map[string]string)
	s.mu.Unlock()
}

// resetToken installs a fresh token and keeps recorded artifacts.
func (s *RunState) resetToken(token *CancelToken) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Token returns the token of the current or last run.
func (s *RunState) Token() *CancelToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *RunState) record(lang, path string) {
	s.mu.Lock()
	if s.artifacts == nil {
		s.artifacts = make(map[string]string)
	}
	s.artifacts[lang] = path
	s.mu.Unlock()
}

// Artifact returns the recorded path for lang.
func (s *RunState) Artifact(lang string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.artifacts[lang]
	return path, ok
}

// Artifacts returns a copy of the recorded paths.
func (s *RunState) Artifacts() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.artifacts))
	for k, v := range s.artifacts {
		out[k] = v
	}
	return out
}
