// hcloud-snap-rotate creates snapshots of Hetzner Cloud servers and rotates
// them generationally: a configurable number of quarter-hourly, hourly,
// daily, weekly, monthly, quarter-yearly and yearly snapshots is kept, the
// rest is deleted.
//
// Usage:
//
//	# One pass over all configured servers
//	hcloud-snap-rotate run --config /etc/hcloud-snap-rotate/config.yaml
//
//	# Show what a pass would do
//	hcloud-snap-rotate run --dry-run
//
//	# Read the API token from stdin
//	pass show hcloud | hcloud-snap-rotate run --api-token-from -
//
//	# Run passes on the configured cron schedule
//	hcloud-snap-rotate daemon
package main

import (
	"os"
	_ "time/tzdata"
)

func main() {
	os.Exit(Execute())
}
