// Package logging builds the structured logger used across the application.
// Records go to stdout, stderr or syslog, as text or JSON, filtered by a
// minimum level that follows syslog priority names.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// LevelNotice sits between info and warn like the syslog priority of the
	// same name. Changes made to snapshots and servers are logged at notice.
	LevelNotice = slog.Level(2)
	levelOff    = slog.Level(100)
)

// Options configures New.
type Options struct {
	Level    string // debug, info, notice, warn, error, off
	Format   string // text, json
	Output   string // stdout, stderr, syslog
	Facility string // syslog facility
	Tag      string // syslog tag
	// Writer replaces stdout/stderr when set.
	Writer io.Writer
}

// New creates a logger. The returned closer releases the syslog connection,
// if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	hopts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}

	if opts.Output == "syslog" {
		h, closer, err := newSyslogHandler(opts.Facility, opts.Tag, hopts)
		if err != nil {
			return nil, nil, err
		}
		return slog.New(h), closer, nil
	}

	w := opts.Writer
	if w == nil {
		switch opts.Output {
		case "", "stdout":
			w = os.Stdout
		case "stderr":
			w = os.Stderr
		default:
			return nil, nil, fmt.Errorf("unknown log output %q", opts.Output)
		}
	}

	var h slog.Handler
	switch opts.Format {
	case "", "text":
		h = slog.NewTextHandler(w, hopts)
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(h), nopCloser{}, nil
}

// ParseLevel maps a syslog style priority name to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "notice":
		return LevelNotice, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "err", "error":
		return slog.LevelError, nil
	case "off":
		return levelOff, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Notice logs at LevelNotice.
func Notice(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.Log(ctx, LevelNotice, msg, args...)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelNotice {
			a.Value = slog.StringValue("NOTICE")
		}
	}
	return a
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
