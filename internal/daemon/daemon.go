package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/config"
	"sermonmux/internal/deps"
	"sermonmux/internal/logging"
	"sermonmux/internal/notifications"
	"sermonmux/internal/orchestrator"
)

const stopRunTimeout = 30 * time.Second

// Daemon serves the control API for one orchestrator.
type Daemon struct {
	mu  sync.RWMutex
	cfg *config.Config

	configPath string
	manager    *orchestrator.Manager
	store      *artifacts.Store
	logger     *slog.Logger
	hub        *logging.StreamHub

	api     *apiServer
	watcher *configWatcher

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	ConfigPath   string
	StateDBPath  string
	LockFilePath string
	OutputDir    string
	Languages    []string
	Run          orchestrator.Status
	Dependencies []deps.Status
}

// Option configures optional daemon collaborators.
type Option func(*Daemon)

// WithConfigPath enables configuration hot reload from path.
func WithConfigPath(path string) Option {
	return func(d *Daemon) { d.configPath = strings.TrimSpace(path) }
}

// WithLogStream exposes hub through the log endpoints.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(d *Daemon) { d.hub = hub }
}

// New constructs a daemon. store may be nil.
func New(cfg *config.Config, manager *orchestrator.Manager, store *artifacts.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and run manager")
	}
	d := &Daemon{
		cfg:     cfg,
		manager: manager,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "daemon"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.api = newAPIServer(cfg, d, d.logger)
	return d, nil
}

// Start begins serving the API and watching the configuration file.
func (d *Daemon) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.running.Store(false)
		return err
	}

	if d.configPath != "" {
		watcher, err := newConfigWatcher(d.configPath, d.reload, d.logger)
		if err != nil {
			logging.WarnWithContext(d.logger, "config watcher unavailable", "config_watch_failed",
				logging.String("path", d.configPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "configuration edits require a restart"),
			)
		} else {
			d.watcher = watcher
			go watcher.run(runCtx)
		}
	}

	d.logger.Info("sermonmux daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("bind", d.api.address()),
		logging.String("lock", d.manager.LockPath()),
	)
	return nil
}

// Stop cancels any active run, waits for it to settle, and stops serving.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	if d.manager.Cancel() {
		ctx, cancel := context.WithTimeout(context.Background(), stopRunTimeout)
		if _, err := d.manager.Wait(ctx); err != nil {
			d.logger.Warn("active run did not stop in time",
				logging.Error(err),
				logging.String(logging.FieldEventType, "daemon_stop_timeout"),
			)
		}
		cancel()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.watcher != nil {
		_ = d.watcher.close()
		d.watcher = nil
	}
	d.api.stop()
	d.logger.Info("sermonmux daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Address returns the bound listener address once started.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	cfg := d.Config()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		ConfigPath:   d.configPath,
		LockFilePath: d.manager.LockPath(),
		OutputDir:    cfg.Paths.OutputDir,
		Languages:    cfg.LanguageOrder(),
		Run:          d.manager.Status(),
		Dependencies: []deps.Status{deps.CheckFFmpeg(cfg.FFmpeg.Binary)},
	}
	if d.store != nil {
		status.StateDBPath = d.store.Path()
	}
	return status
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	cfg := d.Config()
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(cfg)
	if err := notifier.Publish(ctx, notifications.EventTestNotification, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) reload(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.api.setToken(cfg.Paths.APIToken)
	d.manager.Reconfigure(cfg)
}

// Handler returns the API router without binding a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.router
}
