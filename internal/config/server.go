package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/period"
	"github.com/raoulx24/hcloud-snap-rotate/internal/retention"
	"github.com/raoulx24/hcloud-snap-rotate/internal/snapshot"
)

const (
	DefaultSnapshotTimeout = 300 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Server is the effective configuration of one server, with defaults
// applied.
type Server struct {
	Name string

	CreateSnapshot     bool
	SnapshotTimeout    time.Duration
	SnapshotName       string
	TimestampFormat    string
	ShutdownAndRestart bool
	ShutdownTimeout    time.Duration
	AllowPoweroff      bool

	Rotate    bool
	Retention retention.Policy
}

// Namer renders snapshot descriptions for this server.
func (s Server) Namer(loc *time.Location) snapshot.Namer {
	return snapshot.Namer{Template: s.SnapshotName, Layout: s.TimestampFormat, Location: loc}
}

// ResolvedServers returns the effective configuration of every server,
// sorted by name. It reports the same errors as Validate.
func (c *Config) ResolvedServers() ([]Server, error) {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	servers := make([]Server, 0, len(names))
	for _, name := range names {
		s, err := resolve(name, c.Servers[name], c.Defaults)
		if err != nil {
			errs = append(errs, err...)
			continue
		}
		servers = append(servers, s)
	}

	if len(errs) > 0 {
		return nil, joinValidation(errs)
	}
	return servers, nil
}

// Server returns the effective configuration of the named server.
func (c *Config) Server(name string) (Server, bool) {
	sc, ok := c.Servers[name]
	if !ok {
		return Server{}, false
	}
	s, errs := resolve(name, sc, c.Defaults)
	return s, len(errs) == 0
}

func resolve(name string, sc, def ServerConfig) (Server, []error) {
	var errs []error
	field := func(f string) string { return fmt.Sprintf("servers.%s.%s", name, f) }

	s := Server{
		Name:               name,
		CreateSnapshot:     pick(sc.CreateSnapshot, def.CreateSnapshot, false),
		SnapshotTimeout:    seconds(pick(sc.SnapshotTimeout, def.SnapshotTimeout, 0), DefaultSnapshotTimeout),
		SnapshotName:       pick(sc.SnapshotName, def.SnapshotName, ""),
		TimestampFormat:    pick(sc.TimestampFormat, def.TimestampFormat, snapshot.DefaultLayout),
		ShutdownAndRestart: pick(sc.ShutdownAndRestart, def.ShutdownAndRestart, false),
		ShutdownTimeout:    seconds(pick(sc.ShutdownTimeout, def.ShutdownTimeout, 0), DefaultShutdownTimeout),
		AllowPoweroff:      pick(sc.AllowPoweroff, def.AllowPoweroff, false),
		Rotate:             pick(sc.Rotate, def.Rotate, false),
	}
	s.Retention.Sliding = pick(sc.SlidingPeriods, def.SlidingPeriods, false)

	if s.CreateSnapshot && s.SnapshotName == "" {
		errs = append(errs, &ValidationError{Field: field("snapshot_name"), Message: "required when create_snapshot is enabled"})
	}
	if t := pick(sc.SnapshotTimeout, def.SnapshotTimeout, 0); t < 0 {
		errs = append(errs, &ValidationError{Field: field("snapshot_timeout"), Message: "must not be negative"})
	}
	if t := pick(sc.ShutdownTimeout, def.ShutdownTimeout, 0); t < 0 {
		errs = append(errs, &ValidationError{Field: field("shutdown_timeout"), Message: "must not be negative"})
	}

	latest := pick(sc.Latest, def.Latest, 0)
	if latest < 0 {
		errs = append(errs, &ValidationError{Field: field("latest"), Message: "must not be negative"})
	} else {
		s.Retention.Latest = uint(latest)
	}

	for _, tier := range period.Tiers {
		count := pick(sc.count(tier), def.count(tier), 0)
		if count < 0 {
			errs = append(errs, &ValidationError{Field: field(tier.ConfigKey()), Message: "must not be negative"})
			continue
		}
		s.Retention.Counts[tier] = uint(count)
	}

	return s, errs
}

func (sc ServerConfig) count(t period.Tier) *int {
	switch t {
	case period.QuarterHourly:
		return sc.QuarterHourly
	case period.Hourly:
		return sc.Hourly
	case period.Daily:
		return sc.Daily
	case period.Weekly:
		return sc.Weekly
	case period.Monthly:
		return sc.Monthly
	case period.QuarterYearly:
		return sc.QuarterYearly
	case period.Yearly:
		return sc.Yearly
	}
	panic(fmt.Sprintf("config: unknown tier %d", int(t)))
}

func pick[T any](v, def *T, fallback T) T {
	if v != nil {
		return *v
	}
	if def != nil {
		return *def
	}
	return fallback
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
