package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sermonmux/internal/config"
	"sermonmux/internal/logging"
)

const reloadDebounce = 250 * time.Millisecond

// configWatcher reloads the configuration file when it changes on disk.
// The parent directory is watched so editors that replace the file by
// rename are still observed.
type configWatcher struct {
	path    string
	apply   func(*config.Config)
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

func newConfigWatcher(path string, apply func(*config.Config), logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	return &configWatcher{
		path:    abs,
		apply:   apply,
		logger:  logger,
		watcher: watcher,
	}, nil
}

func (w *configWatcher) run(ctx context.Context) {
	w.logger.Info("watching configuration file",
		logging.String(logging.FieldEventType, "config_watch_started"),
		logging.String("path", w.path),
	)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "config_watch_error"),
			)
		}
	}
}

func (w *configWatcher) reload() {
	cfg, _, exists, err := config.Load(w.path)
	if err == nil && !exists {
		err = fmt.Errorf("%s no longer exists", w.path)
	}
	if err != nil {
		logging.WarnWithContext(w.logger, "config reload failed", "config_reload_failed",
			logging.String("path", w.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous configuration remains active"),
			logging.String(logging.FieldErrorHint, "fix the file; it is reloaded on the next save"),
		)
		return
	}
	w.apply(cfg)
}

func (w *configWatcher) close() error {
	return w.watcher.Close()
}
