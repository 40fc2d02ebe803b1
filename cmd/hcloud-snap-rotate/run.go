package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one snapshot and rotation pass",
	Long: `Runs a single pass over all configured servers: creates a snapshot where
create_snapshot is set, then rotates the snapshots where rotate is set.

The exit code is 2 when any phase of any server failed.

Examples:
  # Use a specific configuration
  hcloud-snap-rotate run -c /etc/hcloud-snap-rotate/config.yaml

  # Only log what would change
  hcloud-snap-rotate run --dry-run --log-level info`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer a.closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.rotator(nil).Run(ctx, a.servers)
}
