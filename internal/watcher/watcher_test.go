package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/config"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeConfig(t *testing.T, path, schedule string, mod time.Time) {
	t.Helper()
	doc := "schedule: \"" + schedule + "\"\nservers:\n  web:\n    rotate: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestDetectAppliesValidChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "0 * * * *", base)

	var applied []*config.Config
	w := New(path, config.ReloadConfig{Mode: "poll"}, discard(), func(c *config.Config) {
		applied = append(applied, c)
	})

	w.detect()
	if len(applied) != 0 {
		t.Fatal("unchanged file was applied")
	}

	writeConfig(t, path, "30 2 * * *", base.Add(time.Minute))
	w.detect()
	if len(applied) != 1 || applied[0].Schedule != "30 2 * * *" {
		t.Fatalf("applied = %v, want the new schedule once", applied)
	}

	if err := os.WriteFile(path, []byte("schedule: nonsense\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.detect()
	if len(applied) != 1 {
		t.Error("invalid config was applied")
	}
}

func TestStartPolling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "0 * * * *", time.Now().Add(-time.Hour))

	got := make(chan string, 1)
	w := New(path, config.ReloadConfig{Mode: "poll", PollInterval: 5 * time.Millisecond}, discard(), func(c *config.Config) {
		select {
		case got <- c.Schedule:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	writeConfig(t, path, "15 * * * *", time.Now())

	select {
	case s := <-got:
		if s != "15 * * * *" {
			t.Errorf("schedule = %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change not picked up")
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "c.yaml"), config.ReloadConfig{Mode: "inotify"}, discard(), func(*config.Config) {})
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() accepted an unknown mode")
	}
}
