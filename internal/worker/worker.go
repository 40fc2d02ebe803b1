// Package worker runs snapshot passes requested through a mailbox.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/raoulx24/hcloud-snap-rotate/internal/config"
	"github.com/raoulx24/hcloud-snap-rotate/internal/mailbox"
)

// Runner performs one pass over servers.
type Runner interface {
	Run(ctx context.Context, servers []config.Server) error
}

// Worker executes jobs one at a time. Jobs arriving during a pass coalesce
// into a single follow-up pass.
type Worker struct {
	mu      sync.RWMutex
	runner  Runner
	servers []config.Server
	log     *slog.Logger
	mb      *mailbox.Mailbox[Job]
}

// New creates a worker taking jobs from mb.
func New(runner Runner, servers []config.Server, log *slog.Logger, mb *mailbox.Mailbox[Job]) *Worker {
	return &Worker{
		runner:  runner,
		servers: servers,
		log:     log.With("component", "worker"),
		mb:      mb,
	}
}

// Start runs the worker loop until ctx is done. A pass in progress is
// cancelled through ctx as well.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("starting worker")
	for {
		job, ok := w.mb.Take(ctx)
		if !ok {
			w.log.Info("worker stopped")
			return
		}
		w.Handle(ctx, job)
	}
}

// Handle runs one pass with the current configuration.
func (w *Worker) Handle(ctx context.Context, job Job) error {
	w.mu.RLock()
	runner, servers := w.runner, w.servers
	w.mu.RUnlock()

	w.log.Debug("handling job", "trigger", job.Trigger, "at", job.At)

	err := runner.Run(ctx, servers)
	if err != nil {
		w.log.Error("pass failed", "trigger", job.Trigger, "error", err)
	}
	return err
}

// UpdateConfig swaps runner and servers. The pass in progress keeps the
// previous ones.
func (w *Worker) UpdateConfig(runner Runner, servers []config.Server) {
	w.mu.Lock()
	w.runner = runner
	w.servers = servers
	w.mu.Unlock()

	w.log.Debug("worker configuration updated", "servers", len(servers))
}
