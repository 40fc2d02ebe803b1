// Package fsprobe checks whether fsnotify delivers events for a directory.
// Network and overlay filesystems often accept a watch but never report
// anything, so the probe writes and renames a real file.
package fsprobe

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWait is how long Probe waits for an event when given zero.
const DefaultWait = 200 * time.Millisecond

// Result reports whether fsnotify is usable and why not.
type Result struct {
	Supported bool
	Reason    string
}

func unsupported(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Probe tests whether fsnotify reports a create and rename in dir within
// wait.
func Probe(dir string, wait time.Duration) Result {
	if wait <= 0 {
		wait = DefaultWait
	}

	st, err := os.Stat(dir)
	if err != nil {
		return unsupported("stat failed: %v", err)
	}
	if !st.IsDir() {
		return unsupported("%s is not a directory", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return unsupported("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return unsupported("cannot watch directory: %v", err)
	}

	f, err := os.CreateTemp(dir, ".fsprobe-*")
	if err != nil {
		return unsupported("cannot create probe file: %v", err)
	}
	tmp := f.Name()
	f.Close()

	final := tmp + ".done"
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return unsupported("rename failed: %v", err)
	}
	defer os.Remove(final)

	timeout := time.After(wait)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return unsupported("event channel closed")
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) != 0 {
				return Result{Supported: true}
			}
		case err := <-w.Errors:
			return unsupported("watch error: %v", err)
		case <-timeout:
			return unsupported("no events received within %s", wait)
		}
	}
}
