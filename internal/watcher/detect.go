package watcher

import (
	"os"
	"time"
)

type fileState struct {
	mod  time.Time
	size int64
}

func stat(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{mod: info.ModTime(), size: info.Size()}, nil
}

// detect reloads the configuration if the file changed since the last
// successful check.
func (w *Watcher) detect() {
	w.mu.RLock()
	path, last := w.path, w.last
	w.mu.RUnlock()

	cur, err := stat(path)
	if err != nil {
		w.log.Debug("config file not readable", "error", err)
		return
	}
	if cur == last {
		return
	}

	w.mu.Lock()
	w.last = cur
	w.mu.Unlock()

	cfg, err := w.load(path)
	if err != nil {
		w.log.Error("config reload failed, keeping the running configuration", "error", err)
		return
	}

	w.log.Info("config changed, applying")
	w.apply(cfg)
}
