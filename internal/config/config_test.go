package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/period"
)

const sampleYAML = `
api_token: $(HSR_TEST_TOKEN)
timezone: UTC
defaults:
  create_snapshot: true
  snapshot_name: "{server}-{period_type}#{period_number}"
  rotate: true
  daily: 7
  monthly: 3
servers:
  web-1:
    daily: 14
    sliding_periods: true
  db-1:
    create_snapshot: false
    shutdown_and_restart: true
    shutdown_timeout: 90
`

func TestParse(t *testing.T) {
	t.Setenv("HSR_TEST_TOKEN", "secret")

	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.APIToken != "secret" {
		t.Errorf("APIToken = %q, want env expansion", cfg.APIToken)
	}
	if cfg.API.Endpoint != DefaultEndpoint {
		t.Errorf("API.Endpoint = %q, want default", cfg.API.Endpoint)
	}
	if cfg.Reload.Mode != "auto" {
		t.Errorf("Reload.Mode = %q, want auto", cfg.Reload.Mode)
	}

	servers, err := cfg.ResolvedServers()
	if err != nil {
		t.Fatalf("ResolvedServers() error = %v", err)
	}
	if len(servers) != 2 || servers[0].Name != "db-1" || servers[1].Name != "web-1" {
		t.Fatalf("servers = %+v, want db-1 and web-1 sorted", servers)
	}

	db, web := servers[0], servers[1]

	if db.CreateSnapshot {
		t.Error("db-1 CreateSnapshot should be overridden to false")
	}
	if !db.ShutdownAndRestart || db.ShutdownTimeout != 90*time.Second {
		t.Errorf("db-1 shutdown = %v/%s, want true/90s", db.ShutdownAndRestart, db.ShutdownTimeout)
	}
	if db.SnapshotTimeout != DefaultSnapshotTimeout {
		t.Errorf("db-1 SnapshotTimeout = %s, want default", db.SnapshotTimeout)
	}
	if got := db.Retention.Counts[period.Daily]; got != 7 {
		t.Errorf("db-1 daily = %d, want inherited 7", got)
	}

	if got := web.Retention.Counts[period.Daily]; got != 14 {
		t.Errorf("web-1 daily = %d, want 14", got)
	}
	if got := web.Retention.Counts[period.Monthly]; got != 3 {
		t.Errorf("web-1 monthly = %d, want 3", got)
	}
	if !web.Retention.Sliding {
		t.Error("web-1 should use sliding periods")
	}
	if !web.CreateSnapshot || web.SnapshotName == "" {
		t.Errorf("web-1 should inherit snapshot creation, got %+v", web)
	}
}

func TestParseJSON(t *testing.T) {
	doc := `{"api_token": "x", "servers": {"a": {"rotate": true, "hourly": 2, "quarter_yearly": 1}}}`

	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	s, ok := cfg.Server("a")
	if !ok {
		t.Fatal("server a not found")
	}
	if s.Retention.Counts[period.Hourly] != 2 || s.Retention.Counts[period.QuarterYearly] != 1 {
		t.Errorf("counts = %v", s.Retention.Counts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing snapshot name",
			doc:   "servers:\n  a:\n    create_snapshot: true\n",
			field: "servers.a.snapshot_name",
		},
		{
			name:  "negative count",
			doc:   "servers:\n  a:\n    daily: -1\n",
			field: "servers.a.daily",
		},
		{
			name:  "negative latest in defaults",
			doc:   "defaults:\n  latest: -2\nservers:\n  a: {}\n",
			field: "servers.a.latest",
		},
		{
			name:  "bad schedule",
			doc:   "schedule: every hour\n",
			field: "schedule",
		},
		{
			name:  "bad timezone",
			doc:   "timezone: Mars/Olympus\n",
			field: "timezone",
		},
		{
			name:  "bad log format",
			doc:   "logging:\n  format: xml\n",
			field: "logging.format",
		},
		{
			name:  "bad reload mode",
			doc:   "reload:\n  mode: inotify\n",
			field: "reload.mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() succeeded, want validation error")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %v is not a ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_token: abc\nservers:\n  a:\n    rotate: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIToken != "abc" {
		t.Errorf("APIToken = %q, want abc", cfg.APIToken)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv("HSR_TOKEN_VAR", "from-env")

	tests := []struct {
		name    string
		config  string
		from    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "config file", config: "cfg", want: "cfg"},
		{name: "environment", config: "cfg", from: "HSR_TOKEN_VAR", want: "from-env"},
		{name: "stdin", from: "-", stdin: "piped\nignored\n", want: "piped"},
		{name: "stdin without newline", from: "-", stdin: "piped", want: "piped"},
		{name: "unset variable", config: "cfg", from: "HSR_TOKEN_UNSET", wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIToken: tt.config}
			err := cfg.ResolveToken(tt.from, strings.NewReader(tt.stdin))

			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.APIToken != tt.want {
				t.Errorf("APIToken = %q, want %q", cfg.APIToken, tt.want)
			}
		})
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "example")
	if _, err := time.LoadLocation("Europe/Berlin"); err != nil {
		t.Skip("tzdata not available")
	}

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.Skip("example config not present")
		}
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Reload.Debounce != 500*time.Millisecond {
		t.Errorf("Reload.Debounce = %s, want 500ms", cfg.Reload.Debounce)
	}

	db, ok := cfg.Server("db-1")
	if !ok {
		t.Fatal("db-1 not resolved")
	}
	if db.Retention.Counts[period.Hourly] != 24 || db.Retention.Counts[period.Yearly] != 2 || db.Retention.Latest != 1 {
		t.Errorf("db-1 retention = %+v", db.Retention)
	}
}
