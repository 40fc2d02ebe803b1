// Package rotator runs snapshot passes: for every configured server it
// optionally takes a new snapshot and then rotates the existing ones.
package rotator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/raoulx24/hcloud-snap-rotate/internal/config"
	"github.com/raoulx24/hcloud-snap-rotate/internal/hcloud"
	"github.com/raoulx24/hcloud-snap-rotate/internal/logging"
	"github.com/raoulx24/hcloud-snap-rotate/internal/metrics"
	"github.com/raoulx24/hcloud-snap-rotate/internal/retention"
	"github.com/raoulx24/hcloud-snap-rotate/internal/snapshot"
)

// API is the part of the cloud API a pass needs.
type API interface {
	ListServers(ctx context.Context) ([]hcloud.Server, error)
	ListSnapshots(ctx context.Context) ([]hcloud.Image, error)
	GetServer(ctx context.Context, id int64) (hcloud.Server, error)
	ServerAction(ctx context.Context, serverID int64, action hcloud.ServerAction, body any, timeout time.Duration) (hcloud.Action, *hcloud.Image, error)
	UpdateImageDescription(ctx context.Context, id int64, description string) (hcloud.Image, error)
	DeleteImage(ctx context.Context, id int64) error
}

type Options struct {
	// DryRun logs every mutating call instead of making it.
	DryRun bool
	// Location is used for calendar periods and snapshot timestamps.
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Now      func() time.Time
}

// Rotator runs passes against one project.
type Rotator struct {
	api     API
	dryRun  bool
	loc     *time.Location
	log     *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func New(api API, opts Options) *Rotator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Rotator{
		api:     api,
		dryRun:  opts.DryRun,
		loc:     opts.Location,
		log:     opts.Logger.With("component", "rotator"),
		metrics: opts.Metrics,
		now:     opts.Now,
	}
}

// Run processes servers in order. A failing server does not stop the
// others; all failures are returned together as a *RunError.
func (r *Rotator) Run(ctx context.Context, servers []config.Server) error {
	started := time.Now()
	log := r.log.With("run_id", uuid.NewString())
	if r.dryRun {
		log = log.With("dry_run", true)
	}
	log.Info("run started", "servers", len(servers))

	var failures []Failure
	fail := func(server string, phase Phase, err error) {
		log.Error("phase failed", "server", server, "phase", phase, "error", err)
		r.metrics.PhaseFailed(server, string(phase))
		failures = append(failures, Failure{Server: server, Phase: phase, Err: err})
	}

	remote, snaps, err := r.list(ctx)
	if err != nil {
		fail("", PhaseList, err)
		return r.finish(log, started, failures)
	}

	for _, cfg := range servers {
		if ctx.Err() != nil {
			fail(cfg.Name, PhaseSnapshot, ctx.Err())
			break
		}

		srv, ok := remote[cfg.Name]
		if !ok {
			log.Warn("configured server not found in project", "server", cfg.Name)
			continue
		}
		srvLog := log.With("server", cfg.Name, "server_id", srv.ID)

		var fresh *snapshot.Snapshot
		if cfg.CreateSnapshot {
			fresh, err = r.takeSnapshot(ctx, srvLog, cfg, srv)
			if err != nil {
				fail(cfg.Name, PhaseSnapshot, err)
				srvLog.Warn("skipping rotation after failed snapshot")
				continue
			}
		}

		if cfg.Rotate {
			if err := r.rotate(ctx, srvLog, cfg, own(snaps, srv.ID, cfg.Name, r.loc), fresh); err != nil {
				fail(cfg.Name, PhaseRotate, err)
			}
		}
	}

	return r.finish(log, started, failures)
}

func (r *Rotator) finish(log *slog.Logger, started time.Time, failures []Failure) error {
	elapsed := time.Since(started)
	r.metrics.RunFinished(elapsed, len(failures) > 0)

	if len(failures) > 0 {
		log.Error("run finished with failures", "failures", len(failures), "duration", elapsed)
		return &RunError{Failures: failures}
	}
	log.Info("run finished", "duration", elapsed)
	return nil
}

// list returns the project servers by name and all snapshots.
func (r *Rotator) list(ctx context.Context) (map[string]hcloud.Server, []hcloud.Image, error) {
	servers, err := r.api.ListServers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing servers: %w", err)
	}
	images, err := r.api.ListSnapshots(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing snapshots: %w", err)
	}

	byName := make(map[string]hcloud.Server, len(servers))
	for _, s := range servers {
		byName[s.Name] = s
	}
	return byName, images, nil
}

// own returns the snapshots created from server id, named after the
// configured server and expressed in loc.
func own(images []hcloud.Image, id int64, name string, loc *time.Location) []*snapshot.Snapshot {
	var out []*snapshot.Snapshot
	for _, img := range images {
		s := img.Snapshot()
		if s.ServerID != id {
			continue
		}
		s.ServerName = name
		s.Created = s.Created.In(loc)
		out = append(out, s)
	}
	return out
}

// takeSnapshot creates a snapshot of srv, shutting it down around the
// snapshot if configured. When the server was stopped it is always powered
// on again; the first error wins.
func (r *Rotator) takeSnapshot(ctx context.Context, log *slog.Logger, cfg config.Server, srv hcloud.Server) (*snapshot.Snapshot, error) {
	now := r.now().In(r.loc).Truncate(time.Second)
	desc := cfg.Namer(r.loc).Name(cfg.Name, now, retention.LatestLabel, 1)

	if r.dryRun {
		log.Info("dry run: would create snapshot", "description", desc,
			"shutdown", cfg.ShutdownAndRestart && srv.Status.Up())
		return &snapshot.Snapshot{Description: desc, Created: now, ServerID: srv.ID, ServerName: cfg.Name}, nil
	}

	// the listing may be minutes old by the time this server's turn comes
	cur, err := r.api.GetServer(ctx, srv.ID)
	if err != nil {
		return nil, fmt.Errorf("reading server status: %w", err)
	}
	if cur.Status != srv.Status {
		log.Debug("server status changed since listing", "listed", srv.Status, "current", cur.Status)
	}
	srv.Status = cur.Status

	stopped := false
	if cfg.ShutdownAndRestart && srv.Status.Up() {
		stopped = true
		err = r.powerDown(ctx, log, cfg, srv)
	}

	var fresh *snapshot.Snapshot
	if err == nil {
		fresh, err = r.createImage(ctx, log, cfg, srv, desc)
	}

	if stopped {
		log.Info("powering server on")
		// the run may be cancelled already; the server must come back regardless
		pctx := context.WithoutCancel(ctx)
		if _, _, perr := r.api.ServerAction(pctx, srv.ID, hcloud.ActionPowerOn, nil, cfg.ShutdownTimeout); perr != nil {
			perr = fmt.Errorf("powering on: %w", perr)
			if err == nil {
				err = perr
			} else {
				log.Error("power on failed", "error", perr)
			}
		}
	}

	if err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *Rotator) powerDown(ctx context.Context, log *slog.Logger, cfg config.Server, srv hcloud.Server) error {
	log.Info("shutting server down", "timeout", cfg.ShutdownTimeout)

	_, _, err := r.api.ServerAction(ctx, srv.ID, hcloud.ActionShutdown, nil, cfg.ShutdownTimeout)
	if err == nil {
		return nil
	}
	if !errors.Is(err, hcloud.ErrTimeout) || !cfg.AllowPoweroff {
		return fmt.Errorf("shutting down: %w", err)
	}

	logging.Notice(ctx, log, "shutdown timed out, powering off")
	if _, _, err := r.api.ServerAction(ctx, srv.ID, hcloud.ActionPowerOff, nil, cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("powering off: %w", err)
	}
	return nil
}

func (r *Rotator) createImage(ctx context.Context, log *slog.Logger, cfg config.Server, srv hcloud.Server, desc string) (*snapshot.Snapshot, error) {
	log.Info("creating snapshot", "description", desc, "timeout", cfg.SnapshotTimeout)

	body := map[string]string{"description": desc, "type": "snapshot"}
	_, img, err := r.api.ServerAction(ctx, srv.ID, hcloud.ActionCreateImage, body, cfg.SnapshotTimeout)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot: %w", err)
	}
	if img == nil {
		return nil, errors.New("creating snapshot: response carries no image")
	}

	s := img.Snapshot()
	s.Description = desc
	s.ServerID = srv.ID
	s.ServerName = cfg.Name
	if s.Created.IsZero() {
		s.Created = r.now()
	}
	s.Created = s.Created.In(r.loc)

	r.metrics.SnapshotCreated(cfg.Name)
	logging.Notice(ctx, log, "snapshot created", "snapshot_id", s.ID)
	return s, nil
}

// rotate applies the retention plan of one server. Every rename and delete
// is attempted; the errors are joined.
func (r *Rotator) rotate(ctx context.Context, log *slog.Logger, cfg config.Server, snaps []*snapshot.Snapshot, fresh *snapshot.Snapshot) error {
	ref := r.now().In(r.loc)
	if fresh != nil {
		ref = fresh.Created
	}

	plan := retention.NewPlan(cfg.Retention, snaps, fresh, ref, cfg.Namer(r.loc))
	log.Debug("rotation planned", "snapshots", len(snaps), "keep", len(plan.Keep),
		"rename", len(plan.Rename), "delete", len(plan.Delete), "protected", len(plan.Protected))

	kept := make(map[string]int)
	for _, slot := range plan.Keep {
		kept[slot.Label()]++
	}
	r.metrics.Kept(cfg.Name, kept)

	var errs []error

	for _, rn := range plan.Rename {
		attrs := []any{"snapshot_id", rn.Snapshot.ID, "from", rn.Snapshot.Description, "to", rn.Description}
		if r.dryRun {
			log.Info("dry run: would rename snapshot", attrs...)
			continue
		}
		if _, err := r.api.UpdateImageDescription(ctx, rn.Snapshot.ID, rn.Description); err != nil {
			errs = append(errs, fmt.Errorf("renaming snapshot %d: %w", rn.Snapshot.ID, err))
			continue
		}
		rn.Snapshot.Description = rn.Description
		r.metrics.SnapshotRenamed(cfg.Name)
		log.Info("snapshot renamed", attrs...)
	}

	for _, s := range plan.Protected {
		logging.Notice(ctx, log, "snapshot is delete-protected, keeping it", "snapshot_id", s.ID, "description", s.Description)
		r.metrics.ProtectedSkipped(cfg.Name)
	}

	for _, s := range plan.Delete {
		attrs := []any{"snapshot_id", s.ID, "description", s.Description, "created", s.Created}
		if r.dryRun {
			log.Info("dry run: would delete snapshot", attrs...)
			continue
		}
		if err := r.api.DeleteImage(ctx, s.ID); err != nil {
			errs = append(errs, fmt.Errorf("deleting snapshot %d: %w", s.ID, err))
			continue
		}
		r.metrics.SnapshotDeleted(cfg.Name)
		logging.Notice(ctx, log, "snapshot deleted", attrs...)
	}

	return errors.Join(errs...)
}
