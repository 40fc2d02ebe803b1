// Package scheduler posts worker jobs on a cron schedule.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/hcloud-snap-rotate/internal/mailbox"
	"github.com/raoulx24/hcloud-snap-rotate/internal/worker"
)

// Scheduler triggers passes at the times of a cron expression.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	mb      *mailbox.Mailbox[worker.Job]
	logger  *slog.Logger
	now     func() time.Time
	running bool
}

// New creates a scheduler evaluating spec in loc. The spec uses the
// standard five field syntax.
func New(spec string, loc *time.Location, mb *mailbox.Mailbox[worker.Job], logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		mb:     mb,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
	}
	if err := s.Update(spec); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the schedule. Unchanged specs are a no-op.
func (s *Scheduler) Update(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec && s.entry != 0 {
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry, s.spec = id, spec

	s.logger.Info("schedule set", "schedule", spec)
	return nil
}

func (s *Scheduler) fire() {
	if s.mb.Put(worker.Job{Trigger: worker.TriggerSchedule, At: s.now()}) {
		s.logger.Warn("previous pass still pending, coalescing")
		return
	}
	s.logger.Debug("pass triggered")
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "next_run", s.nextRun())
}

// Stop stops firing. Jobs already posted stay in the mailbox.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// NextRun returns the next time a pass will be triggered, or the zero time
// when the scheduler is not running.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun()
}

func (s *Scheduler) nextRun() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}
