package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/config"
	"sermonmux/internal/logging"
	"sermonmux/internal/notifications"
	"sermonmux/internal/templates"
	"sermonmux/internal/transcode"
	"sermonmux/internal/upload"
)

// Transcoder executes one transcode job and returns the output path.
type Transcoder interface {
	Execute(ctx context.Context, job transcode.Job) (string, error)
}

// Uploader transfers one file.
type Uploader interface {
	Upload(ctx context.Context, job upload.Job, token upload.CancelToken) upload.Outcome
}

// UploaderFactory builds an uploader when a run needs one. Errors are
// configuration errors and reject the run before it starts.
type UploaderFactory func(ctx context.Context) (Uploader, error)

// Manager coordinates runs.
type Manager struct {
	cfg        *config.Config
	store      *artifacts.Store
	logger     *slog.Logger
	notifier   notifications.Service
	transcoder Transcoder
	uploaders  UploaderFactory
	catalog    *templates.Catalog
	now        func() time.Time
	lock       *flock.Flock

	runState RunState

	mu             sync.RWMutex
	status         Status
	done           chan struct{}
	progress       *upload.Progress
	pending        *config.Config
	customNotifier bool
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithNotifier overrides the notifier built from configuration.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
			m.customNotifier = true
		}
	}
}

// WithUploaderFactory sets how uploaders are built.
func WithUploaderFactory(f UploaderFactory) Option {
	return func(m *Manager) { m.uploaders = f }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a manager. store may be nil, in which case artifacts
// are tracked in memory only.
func NewManager(cfg *config.Config, store *artifacts.Store, transcoder Transcoder, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:        cfg,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "orchestrator"),
		notifier:   notifications.NewService(cfg),
		transcoder: transcoder,
		catalog:    templates.NewCatalog(cfg.TemplateOverrides()),
		now:        time.Now,
		lock:       flock.New(cfg.LockPath()),
		status:     Status{State: StateNotStarted},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunState exposes the in-memory artifact map and token.
func (m *Manager) RunState() *RunState {
	return &m.runState
}

// LockPath returns the cross-process lock file location.
func (m *Manager) LockPath() string {
	return m.lock.Path()
}
