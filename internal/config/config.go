package config

import "time"

// Config is the on-disk configuration. JSON files parse as well, JSON being a
// subset of YAML.
type Config struct {
	APIToken string `yaml:"api_token"`

	// Timezone is the IANA location used for calendar periods and snapshot
	// timestamps. Empty means the local zone.
	Timezone string `yaml:"timezone"`

	// Schedule is the cron expression driving the daemon.
	Schedule string `yaml:"schedule"`

	API      APIConfig               `yaml:"api"`
	Logging  LoggingConfig           `yaml:"logging"`
	Metrics  MetricsConfig           `yaml:"metrics"`
	Reload   ReloadConfig            `yaml:"reload"`
	Defaults ServerConfig            `yaml:"defaults"`
	Servers  map[string]ServerConfig `yaml:"servers"`
}

type APIConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`    // "debug", "info", "notice", "warn", "error"
	Format   string `yaml:"format"`   // "text", "json"
	Output   string `yaml:"output"`   // "stdout", "stderr", "syslog"
	Facility string `yaml:"facility"` // syslog facility, e.g. "LOCAL0"
}

type MetricsConfig struct {
	// Listen is the address serving /metrics in daemon mode. Empty disables it.
	Listen string `yaml:"listen"`
}

type ReloadConfig struct {
	Mode         string        `yaml:"mode"` // "auto", "fsnotify", "poll", "off"
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// ServerConfig holds per-server settings. Nil fields inherit from the
// defaults section.
type ServerConfig struct {
	CreateSnapshot     *bool   `yaml:"create_snapshot"`
	SnapshotTimeout    *int    `yaml:"snapshot_timeout"` // seconds
	SnapshotName       *string `yaml:"snapshot_name"`
	TimestampFormat    *string `yaml:"timestamp_format"`
	ShutdownAndRestart *bool   `yaml:"shutdown_and_restart"`
	ShutdownTimeout    *int    `yaml:"shutdown_timeout"` // seconds
	AllowPoweroff      *bool   `yaml:"allow_poweroff"`

	Rotate         *bool `yaml:"rotate"`
	SlidingPeriods *bool `yaml:"sliding_periods"`
	Latest         *int  `yaml:"latest"`
	QuarterHourly  *int  `yaml:"quarter_hourly"`
	Hourly         *int  `yaml:"hourly"`
	Daily          *int  `yaml:"daily"`
	Weekly         *int  `yaml:"weekly"`
	Monthly        *int  `yaml:"monthly"`
	QuarterYearly  *int  `yaml:"quarter_yearly"`
	Yearly         *int  `yaml:"yearly"`
}
