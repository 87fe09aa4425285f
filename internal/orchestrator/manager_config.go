package orchestrator

import (
	"sermonmux/internal/config"
	"sermonmux/internal/logging"
	"sermonmux/internal/notifications"
	"sermonmux/internal/templates"
)

// Reconfigure swaps the configuration used by future runs. While a run is
// active the new configuration is held and applied when the run finishes.
// It reports whether the configuration took effect immediately.
func (m *Manager) Reconfigure(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State == StateRunning {
		m.pending = cfg
		m.logger.Info("configuration change deferred until run finishes",
			logging.String(logging.FieldEventType, "config_reload_deferred"),
		)
		return false
	}
	m.applyConfigLocked(cfg)
	return true
}

// Config returns the configuration used for the next run.
func (m *Manager) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) snapshot() (*config.Config, *templates.Catalog) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg, m.catalog
}

func (m *Manager) applyConfigLocked(cfg *config.Config) {
	m.cfg = cfg
	m.pending = nil
	m.catalog = templates.NewCatalog(cfg.TemplateOverrides())
	if !m.customNotifier {
		m.notifier = notifications.NewService(cfg)
	}
	m.logger.Info("configuration applied",
		logging.String(logging.FieldEventType, "config_reloaded"),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.Any("languages", cfg.LanguageOrder()),
	)
}
