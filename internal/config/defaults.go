package config

import "time"

const (
	DefaultEndpoint       = "https://api.hetzner.cloud/v1"
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryInterval  = 5 * time.Second
	DefaultPollInterval   = 5 * time.Second
	DefaultSchedule       = "0 * * * *"
)

// ApplyDefaults fills unset global settings. Per-server settings are
// defaulted when servers are resolved.
func ApplyDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = DefaultEndpoint
	}
	if cfg.API.RequestTimeout == 0 {
		cfg.API.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.API.RetryInterval == 0 {
		cfg.API.RetryInterval = DefaultRetryInterval
	}
	if cfg.API.PollInterval == 0 {
		cfg.API.PollInterval = DefaultPollInterval
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "notice"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.Facility == "" {
		cfg.Logging.Facility = "USER"
	}

	if cfg.Reload.Mode == "" {
		cfg.Reload.Mode = "auto"
	}
	if cfg.Reload.PollInterval == 0 {
		cfg.Reload.PollInterval = 10 * time.Second
	}
	if cfg.Reload.Debounce == 0 {
		cfg.Reload.Debounce = 500 * time.Millisecond
	}
}
