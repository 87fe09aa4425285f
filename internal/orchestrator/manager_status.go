package orchestrator

import (
	"time"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/upload"
)

// Status is a snapshot of the current or last run.
type Status struct {
	State           State             `json:"state"`
	RunID           string            `json:"run_id,omitempty"`
	Kind            artifacts.RunKind `json:"kind,omitempty"`
	StartedAt       time.Time         `json:"started_at,omitzero"`
	FinishedAt      time.Time         `json:"finished_at,omitzero"`
	CurrentLanguage string            `json:"current_language,omitempty"`
	Stage           string            `json:"stage,omitempty"`
	Languages       []string          `json:"languages,omitempty"`
	Produced        int               `json:"produced"`
	Uploaded        int               `json:"uploaded"`
	Failed          int               `json:"failed"`
	CancelRequested bool              `json:"cancel_requested"`
	LastError       string            `json:"last_error,omitempty"`
	ErrorClass      string            `json:"error_class,omitempty"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
	Progress        *upload.Progress  `json:"progress,omitempty"`
}

// Status returns the latest run information.
func (m *Manager) Status() Status {
	m.mu.RLock()
	snapshot := m.status
	snapshot.Languages = append([]string(nil), m.status.Languages...)
	if m.progress != nil {
		p := *m.progress
		snapshot.Progress = &p
	}
	m.mu.RUnlock()

	snapshot.Artifacts = m.runState.Artifacts()
	snapshot.CancelRequested = m.runState.Token().Cancelled()
	return snapshot
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State == StateRunning
}

func (m *Manager) setStage(lang, stage string) {
	m.mu.Lock()
	m.status.CurrentLanguage = lang
	m.status.Stage = stage
	m.progress = nil
	m.mu.Unlock()
}

func (m *Manager) countProduced() {
	m.mu.Lock()
	m.status.Produced++
	m.mu.Unlock()
}

func (m *Manager) countUploaded() {
	m.mu.Lock()
	m.status.Uploaded++
	m.mu.Unlock()
}

func (m *Manager) countFailed() {
	m.mu.Lock()
	m.status.Failed++
	m.mu.Unlock()
}

// observeProgress is installed as the upload client's progress callback.
func (m *Manager) observeProgress(p upload.Progress) {
	m.mu.Lock()
	m.progress = &p
	m.mu.Unlock()
}

// ProgressObserver returns a callback suitable for upload.Options.Progress
// that feeds Status. Extra observers receive every update too.
func (m *Manager) ProgressObserver(extra ...upload.ProgressFunc) upload.ProgressFunc {
	return func(p upload.Progress) {
		m.observeProgress(p)
		for _, fn := range extra {
			if fn != nil {
				fn(p)
			}
		}
	}
}
