package watcher

import "github.com/raoulx24/hcloud-snap-rotate/internal/config"

// UpdateConfig applies new reload settings. The debounce window takes
// effect with the next event; mode and poll interval need a restart.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cfg.Mode != w.mode || cfg.PollInterval != w.interval {
		w.log.Warn("reload mode or poll interval changed, restart to apply",
			"mode", cfg.Mode, "poll_interval", cfg.PollInterval)
	}
	w.debounce = cfg.Debounce
}
