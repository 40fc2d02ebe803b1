package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/hcloud-snap-rotate/internal/config"
	"github.com/raoulx24/hcloud-snap-rotate/internal/hcloud"
	"github.com/raoulx24/hcloud-snap-rotate/internal/logging"
	"github.com/raoulx24/hcloud-snap-rotate/internal/metrics"
	"github.com/raoulx24/hcloud-snap-rotate/internal/rotator"
)

// Exit codes.
const (
	exitOK       = 0
	exitConfig   = 1 // invalid invocation or configuration
	exitFailures = 2 // a pass finished with failed phases
)

var rootFlags struct {
	configFile string
	tokenFrom  string
	logLevel   string
	facility   string
	dryRun     bool
}

var rootCmd = &cobra.Command{
	Use:   "hcloud-snap-rotate",
	Short: "Create and rotate snapshots of Hetzner Cloud servers",
	Long: `Creates snapshots of Hetzner Cloud servers and rotates them generationally.

For every period type (quarter_hourly, hourly, daily, weekly, monthly,
quarter_yearly, yearly) a configured number of periods is retained, walking
back from the newest snapshot. Each period keeps its oldest snapshot; the
others are deleted unless they are delete-protected. Kept snapshots are
renamed after the period they now represent.

Without a subcommand a single pass is run.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	var runErr *rotator.RunError
	if errors.As(err, &runErr) {
		// already logged per failure
		return exitFailures
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return exitConfig
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configFile, "config", "c", "config.yaml", "read the configuration from this file (YAML or JSON)")
	pf.StringVarP(&rootFlags.tokenFrom, "api-token-from", "t", "", "environment variable holding the API token, or - to read it from stdin")
	pf.StringVarP(&rootFlags.logLevel, "log-level", "p", "", "override the log level (debug, info, notice, warn, error, off)")
	pf.StringVarP(&rootFlags.facility, "facility", "f", "", "log to syslog with this facility, e.g. LOCAL0")
	pf.BoolVarP(&rootFlags.dryRun, "dry-run", "n", false, "log the changes a pass would make without making them")

	rootCmd.RunE = runOnce
}

// app is the state shared by the commands after startup.
type app struct {
	cfg     *config.Config
	servers []config.Server
	loc     *time.Location
	log     *slog.Logger
	closer  io.Closer
}

// loadApp loads the configuration, applies the command line overrides and
// builds the logger.
func loadApp(stdin io.Reader) (*app, error) {
	cfg, err := config.Load(rootFlags.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveToken(rootFlags.tokenFrom, stdin); err != nil {
		return nil, err
	}

	if rootFlags.logLevel != "" {
		if _, err := logging.ParseLevel(rootFlags.logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = rootFlags.logLevel
	}
	if rootFlags.facility != "" {
		cfg.Logging.Output = "syslog"
		cfg.Logging.Facility = rootFlags.facility
	}

	log, closer, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		Facility: cfg.Logging.Facility,
		Tag:      "hcloud-snap-rotate",
	})
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(log)

	a := &app{cfg: cfg, log: log, closer: closer}
	if err := a.resolve(); err != nil {
		closer.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) resolve() error {
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	servers, err := a.cfg.ResolvedServers()
	if err != nil {
		return err
	}
	a.loc, a.servers = loc, servers
	return nil
}

func (a *app) rotator(m *metrics.Collector) *rotator.Rotator {
	client := hcloud.New(hcloud.Options{
		Endpoint:      a.cfg.API.Endpoint,
		Token:         a.cfg.APIToken,
		Timeout:       a.cfg.API.RequestTimeout,
		RetryInterval: a.cfg.API.RetryInterval,
		PollInterval:  a.cfg.API.PollInterval,
		Logger:        a.log,
	})
	return rotator.New(client, rotator.Options{
		DryRun:   rootFlags.dryRun,
		Location: a.loc,
		Logger:   a.log,
		Metrics:  m,
	})
}
