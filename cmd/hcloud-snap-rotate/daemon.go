package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/hcloud-snap-rotate/internal/config"
	"github.com/raoulx24/hcloud-snap-rotate/internal/mailbox"
	"github.com/raoulx24/hcloud-snap-rotate/internal/metrics"
	"github.com/raoulx24/hcloud-snap-rotate/internal/scheduler"
	"github.com/raoulx24/hcloud-snap-rotate/internal/watcher"
	"github.com/raoulx24/hcloud-snap-rotate/internal/worker"
)

var daemonFlags struct {
	runNow bool
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run passes on the configured cron schedule",
	Long: `Stays in the foreground and runs a pass whenever the cron expression in
schedule fires. Triggers that arrive while a pass is running collapse into
one follow-up pass.

The configuration file is reloaded when it changes (see reload.mode) or on
SIGHUP. Prometheus metrics are served on metrics.listen when set.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().BoolVar(&daemonFlags.runNow, "run-now", false, "run a pass right after startup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer a.closer.Close()
	log := a.log

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector(nil)
	if addr := a.cfg.Metrics.Listen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			log.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	mb := mailbox.New[worker.Job]()
	w := worker.New(a.rotator(m), a.servers, log, mb)

	sched, err := scheduler.New(a.cfg.Schedule, a.loc, mb, log)
	if err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		watch *watcher.Watcher
	)
	apply := func(cfg *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		// stdin is consumed at startup; an environment variable may change
		if rootFlags.tokenFrom == "-" {
			cfg.APIToken = a.cfg.APIToken
		} else if err := cfg.ResolveToken(rootFlags.tokenFrom, nil); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}

		if cfg.Timezone != a.cfg.Timezone || cfg.Logging != a.cfg.Logging || cfg.Metrics != a.cfg.Metrics {
			log.Warn("timezone, logging and metrics changes need a restart")
			cfg.Timezone, cfg.Logging, cfg.Metrics = a.cfg.Timezone, a.cfg.Logging, a.cfg.Metrics
		}

		next := &app{cfg: cfg, log: log, closer: a.closer}
		if err := next.resolve(); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if err := sched.Update(cfg.Schedule); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		w.UpdateConfig(next.rotator(m), next.servers)
		watch.UpdateConfig(cfg.Reload)
		a = next

		log.Info("config reloaded", "servers", len(next.servers))
	}
	watch = watcher.New(rootFlags.configFile, a.cfg.Reload, log, apply)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Start(ctx)
	}()

	go func() {
		if err := watch.Start(ctx); err != nil {
			log.Error("config watcher stopped", "error", err)
		}
	}()

	// Hot reload on SIGHUP
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGHUP)
		defer signal.Stop(sigCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				cfg, err := config.Load(rootFlags.configFile)
				if err != nil {
					log.Error("config reload failed", "error", err)
					continue
				}
				apply(cfg)
			}
		}
	}()

	sched.Start()
	defer sched.Stop()

	if daemonFlags.runNow {
		mb.Put(worker.Job{Trigger: worker.TriggerStartup, At: time.Now()})
	}

	<-ctx.Done()
	log.Info("shutting down, waiting for the running pass")
	<-workerDone
	return nil
}
