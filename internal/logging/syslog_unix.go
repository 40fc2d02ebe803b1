//go:build !windows && !plan9

package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"strings"
	"sync"
)

var facilities = map[string]syslog.Priority{
	"KERN":   syslog.LOG_KERN,
	"USER":   syslog.LOG_USER,
	"MAIL":   syslog.LOG_MAIL,
	"DAEMON": syslog.LOG_DAEMON,
	"AUTH":   syslog.LOG_AUTH,
	"LPR":    syslog.LOG_LPR,
	"NEWS":   syslog.LOG_NEWS,
	"UUCP":   syslog.LOG_UUCP,
	"CRON":   syslog.LOG_CRON,
	"SYSLOG": syslog.LOG_SYSLOG,
	"LOCAL0": syslog.LOG_LOCAL0,
	"LOCAL1": syslog.LOG_LOCAL1,
	"LOCAL2": syslog.LOG_LOCAL2,
	"LOCAL3": syslog.LOG_LOCAL3,
	"LOCAL4": syslog.LOG_LOCAL4,
	"LOCAL5": syslog.LOG_LOCAL5,
	"LOCAL6": syslog.LOG_LOCAL6,
	"LOCAL7": syslog.LOG_LOCAL7,
}

// syslogHandler formats records as text and sends each one with the syslog
// priority matching its level.
type syslogHandler struct {
	slog.Handler
	w   *syslog.Writer
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func newSyslogHandler(facility, tag string, opts *slog.HandlerOptions) (slog.Handler, io.Closer, error) {
	prio, ok := facilities[strings.ToUpper(facility)]
	if !ok {
		return nil, nil, fmt.Errorf("unknown syslog facility %q", facility)
	}

	w, err := syslog.New(prio|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to syslog: %w", err)
	}

	// syslog stamps its own time
	textOpts := *opts
	textOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		return opts.ReplaceAttr(groups, a)
	}

	buf := &bytes.Buffer{}
	return &syslogHandler{
		Handler: slog.NewTextHandler(buf, &textOpts),
		w:       w,
		mu:      &sync.Mutex{},
		buf:     buf,
	}, w, nil
}

func (h *syslogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}
	msg := strings.TrimSuffix(h.buf.String(), "\n")

	switch {
	case r.Level >= slog.LevelError:
		return h.w.Err(msg)
	case r.Level >= slog.LevelWarn:
		return h.w.Warning(msg)
	case r.Level >= LevelNotice:
		return h.w.Notice(msg)
	case r.Level >= slog.LevelInfo:
		return h.w.Info(msg)
	default:
		return h.w.Debug(msg)
	}
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syslogHandler{Handler: h.Handler.WithAttrs(attrs), w: h.w, mu: h.mu, buf: h.buf}
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	return &syslogHandler{Handler: h.Handler.WithGroup(name), w: h.w, mu: h.mu, buf: h.buf}
}
