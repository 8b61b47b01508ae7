package config

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/paleotech/toolbox7/internal/logger"
)

// Watcher hot-reloads the subset of configuration that is safe to
// change while a Core is running: ExtensionConfig.DebugMode and
// ExtensionConfig.AutoLoadEnabled. Everything else (zone budgets,
// resource chain, logging transport) requires a restart.
type Watcher struct {
	mu  sync.RWMutex
	v   *viper.Viper
	cfg ExtensionConfig
}

// WatchExtensionConfig starts watching configPath for changes and
// returns a Watcher reflecting ExtensionConfig's live value. Changes
// to any other section are ignored.
func WatchExtensionConfig(configPath string, initial ExtensionConfig) (*Watcher, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	w := &Watcher{v: v, cfg: initial}

	v.OnConfigChange(func(e fsnotify.Event) {
		w.reload(e)
	})
	v.WatchConfig()

	return w, nil
}

func (w *Watcher) reload(e fsnotify.Event) {
	var section struct {
		Extension ExtensionConfig `mapstructure:"extension"`
	}
	if err := w.v.Unmarshal(&section); err != nil {
		logger.Warn("config hot-reload failed to unmarshal", logger.Err(err), logger.Source(e.Name))
		return
	}

	w.mu.Lock()
	prev := w.cfg
	w.cfg.DebugMode = section.Extension.DebugMode
	w.cfg.AutoLoadEnabled = section.Extension.AutoLoadEnabled
	changed := w.cfg
	w.mu.Unlock()

	if prev.DebugMode != changed.DebugMode || prev.AutoLoadEnabled != changed.AutoLoadEnabled {
		logger.Info("extension config hot-reloaded",
			"debug_mode", changed.DebugMode,
			"auto_load_enabled", changed.AutoLoadEnabled,
			logger.Source(strings.TrimSpace(e.Name)))
	}
}

// DebugMode returns the current live value.
func (w *Watcher) DebugMode() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg.DebugMode
}

// AutoLoadEnabled returns the current live value.
func (w *Watcher) AutoLoadEnabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg.AutoLoadEnabled
}
