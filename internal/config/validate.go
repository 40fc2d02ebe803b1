package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

var (
	logLevels   = []string{"debug", "info", "notice", "warn", "warning", "err", "error", "off"}
	logFormats  = []string{"text", "json"}
	logOutputs  = []string{"stdout", "stderr", "syslog"}
	reloadModes = []string{"auto", "fsnotify", "poll", "off"}
)

// Validate checks a defaulted configuration and returns all problems found.
func Validate(cfg *Config) error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := cfg.Location(); err != nil {
		invalid("timezone", "%v", err)
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		invalid("schedule", "%v", err)
	}

	if !slices.Contains(logLevels, strings.ToLower(cfg.Logging.Level)) {
		invalid("logging.level", "unknown level %q", cfg.Logging.Level)
	}
	if !slices.Contains(logFormats, cfg.Logging.Format) {
		invalid("logging.format", "unknown format %q", cfg.Logging.Format)
	}
	if !slices.Contains(logOutputs, cfg.Logging.Output) {
		invalid("logging.output", "unknown output %q", cfg.Logging.Output)
	}
	if !slices.Contains(reloadModes, cfg.Reload.Mode) {
		invalid("reload.mode", "unknown mode %q", cfg.Reload.Mode)
	}
	if cfg.Reload.PollInterval < 0 || cfg.Reload.Debounce < 0 {
		invalid("reload", "intervals must not be negative")
	}
	if cfg.API.RequestTimeout < 0 || cfg.API.RetryInterval < 0 || cfg.API.PollInterval < 0 {
		invalid("api", "durations must not be negative")
	}

	if _, err := cfg.ResolvedServers(); err != nil {
		errs = append(errs, err)
	}

	return joinValidation(errs)
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func joinValidation(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
