// Package watcher reloads the configuration file when it changes.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/config"
	"github.com/raoulx24/hcloud-snap-rotate/internal/fsprobe"
)

// ApplyFunc receives every successfully loaded configuration.
type ApplyFunc func(*config.Config)

// Watcher observes the configuration file and hands valid new versions to
// an ApplyFunc. Invalid versions are logged and ignored.
type Watcher struct {
	mu sync.RWMutex

	path     string
	mode     string
	interval time.Duration
	debounce time.Duration

	log   *slog.Logger
	load  func(string) (*config.Config, error)
	apply ApplyFunc

	last fileState
}

// New creates a watcher for the configuration at path. The file's current
// state counts as seen.
func New(path string, cfg config.ReloadConfig, log *slog.Logger, apply ApplyFunc) *Watcher {
	w := &Watcher{
		path:     path,
		mode:     cfg.Mode,
		interval: cfg.PollInterval,
		debounce: cfg.Debounce,
		log:      log.With("component", "watcher", "path", path),
		load:     config.Load,
		apply:    apply,
	}
	w.last, _ = stat(path)
	return w
}

// Start chooses the watching strategy from the reload mode and blocks until
// ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	mode := w.mode
	w.mu.RUnlock()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobe.Probe(filepath.Dir(w.path), 0)
		if res.Supported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling instead", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	case "off":
		w.log.Info("config reload disabled")
		<-ctx.Done()
		return nil

	default:
		return fmt.Errorf("unknown reload mode %q", mode)
	}
}
